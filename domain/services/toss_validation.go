package services

import (
	"math"
	"strings"

	"tossbot/domain/entities"
)

// tossValidation contains pure business-rule checks with no I/O, mirroring
// the teacher's split between a service that orchestrates persistence and a
// sibling that holds the rules it enforces.
type tossValidation struct{}

// NewTossValidation constructs the pure validation helper.
func NewTossValidation() *tossValidation {
	return &tossValidation{}
}

const (
	MaxStake     = 10.0
	DefaultStake = 0.1
)

// ValidateStake enforces 0 < stake <= MaxStake.
func (tossValidation) ValidateStake(stake float64) error {
	if stake <= 0 {
		return entities.ErrAmountTooLarge
	}
	if stake > MaxStake {
		return entities.ErrAmountTooLarge
	}
	return nil
}

// ValidateOptions requires exactly two non-empty, non-duplicate (case
// insensitive) outcome labels.
func (tossValidation) ValidateOptions(options [2]string) error {
	if strings.TrimSpace(options[0]) == "" || strings.TrimSpace(options[1]) == "" {
		return entities.ErrInvalidOption
	}
	if strings.EqualFold(options[0], options[1]) {
		return entities.ErrInvalidOption
	}
	return nil
}

// CanAddParticipant applies the AddParticipant preconditions that don't
// require touching the Store.
func (tossValidation) CanAddParticipant(t *entities.Toss, userID, option string, paid bool) error {
	if t.IsTerminal() || !t.CanAddParticipant() {
		return entities.ErrBadState
	}
	if t.HasParticipant(userID) {
		return entities.ErrDuplicateParticipant
	}
	if !paid {
		return entities.ErrUnpaid
	}
	if _, ok := t.ResolveOption(option); !ok {
		return entities.ErrInvalidOption
	}
	return nil
}

// CanClose applies the Close preconditions that don't require touching the
// Store.
func (tossValidation) CanClose(t *entities.Toss, caller, winningOption string) error {
	if caller != t.Creator {
		return entities.ErrNotCreator
	}
	if !t.CanClose() {
		return entities.ErrBadState
	}
	if len(t.Participants) < 2 {
		return entities.ErrNotEnoughPlayers
	}
	if _, ok := t.ResolveOption(winningOption); !ok {
		return entities.ErrInvalidOption
	}
	return nil
}

// CanForceClose applies the ForceClose preconditions.
func (tossValidation) CanForceClose(t *entities.Toss, caller string) error {
	if caller != t.Creator {
		return entities.ErrNotCreator
	}
	if t.IsTerminal() {
		return entities.ErrBadState
	}
	return nil
}

// EqualSplitPayouts divides totalPot evenly across winners, matching the
// spec's "equal split" payout rule (as opposed to the teacher's
// contribution-weighted pool-wager math, which this domain does not use).
// Each share is rounded down to a whole minor unit (six decimals).
func (tossValidation) EqualSplitPayouts(winners []string, totalPot float64) map[string]float64 {
	payouts := make(map[string]float64, len(winners))
	if len(winners) == 0 {
		return payouts
	}
	potMinor := math.Round(totalPot * MinorUnitsPerStablecoinUnit)
	per := math.Floor(potMinor/float64(len(winners))) / MinorUnitsPerStablecoinUnit
	for _, w := range winners {
		payouts[w] += per
	}
	return payouts
}

// UnrecordedParticipants computes how many paid-in participants Refresh
// should infer from an escrow balance that exceeds stake*len(participants).
func (tossValidation) UnrecordedParticipants(balance, stake float64, recorded int) int {
	expected := stake * float64(recorded)
	if balance <= expected || stake <= 0 {
		return 0
	}
	return int((balance - expected) / stake)
}
