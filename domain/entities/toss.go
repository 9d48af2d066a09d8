package entities

import (
	"strconv"
	"strings"
	"time"
)

// Status represents the lifecycle state of a toss.
type Status string

const (
	StatusCreated          Status = "CREATED"
	StatusWaitingForPlayer Status = "WAITING_FOR_PLAYER"
	StatusInProgress       Status = "IN_PROGRESS"
	StatusCompleted        Status = "COMPLETED"
	StatusCancelled        Status = "CANCELLED"
)

// ResultForceClosed is the sentinel result value recorded when a toss is
// terminated by ForceClose rather than by a declared winning option.
const ResultForceClosed = "FORCE_CLOSED"

// PickKind distinguishes an explicitly chosen option from one inferred by
// Refresh when an unexpected escrow balance is reconciled against recorded
// participants.
type PickKind string

const (
	PickExplicit PickKind = "explicit"
	PickUnknown  PickKind = "unknown"
)

// Pick is one participant's option choice, in join order.
type Pick struct {
	UserID string
	Option string
	Kind   PickKind
}

// Toss is the central wager-round entity: a topic, two options, a uniform
// per-participant stake, and the bookkeeping needed to distribute or refund
// the pot exactly once.
type Toss struct {
	ID             string
	Creator        string
	ConversationID string
	Stake          float64
	Topic          string
	Options        [2]string
	WalletAddress  string
	CreatedAt      int64
	Status         Status

	Participants       []string
	ParticipantOptions []Pick

	Result         string
	PaymentSuccess bool
	TxHash         string
	TxLink         string

	FailedWinners []string
	FailedRefunds []string
}

// IsTerminal reports whether the toss has reached a state that may never be
// mutated again.
func (t *Toss) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusCancelled
}

// CanAddParticipant reports whether a new participant may still join.
func (t *Toss) CanAddParticipant() bool {
	return t.Status == StatusCreated || t.Status == StatusWaitingForPlayer
}

// CanClose reports whether the toss is eligible for a creator-declared close.
func (t *Toss) CanClose() bool {
	return t.Status == StatusWaitingForPlayer
}

// HasParticipant reports whether the given user has already joined.
func (t *Toss) HasParticipant(userID string) bool {
	for _, p := range t.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ResolveOption case-folds candidate against the toss's two options and
// returns the canonical option text and whether it matched.
func (t *Toss) ResolveOption(candidate string) (string, bool) {
	for _, opt := range t.Options {
		if strings.EqualFold(opt, candidate) {
			return opt, true
		}
	}
	return "", false
}

// OptionIndex returns the index (0 or 1) of a canonical option, or -1.
func (t *Toss) OptionIndex(option string) int {
	for i, opt := range t.Options {
		if strings.EqualFold(opt, option) {
			return i
		}
	}
	return -1
}

// TotalPot is stake times the number of recorded participants.
func (t *Toss) TotalPot() float64 {
	return t.Stake * float64(len(t.Participants))
}

// WinnersFor returns the user ids of participants whose pick matches option.
func (t *Toss) WinnersFor(option string) []string {
	var winners []string
	for _, pick := range t.ParticipantOptions {
		if strings.EqualFold(pick.Option, option) {
			winners = append(winners, pick.UserID)
		}
	}
	return winners
}

// AddParticipant appends a participant/pick pair, keeping the two parallel
// lists in lockstep, and advances status to WAITING_FOR_PLAYER.
func (t *Toss) AddParticipant(userID, option string, kind PickKind) {
	t.Participants = append(t.Participants, userID)
	t.ParticipantOptions = append(t.ParticipantOptions, Pick{UserID: userID, Option: option, Kind: kind})
	if t.Status == StatusCreated {
		t.Status = StatusWaitingForPlayer
	}
}

// NextTossID computes the next monotone id given the highest existing id
// seen so far in the Store ("" if none exist).
func NextTossID(highest string) string {
	if highest == "" {
		return "1"
	}
	n, err := strconv.ParseInt(highest, 10, 64)
	if err != nil {
		return "1"
	}
	return strconv.FormatInt(n+1, 10)
}

// StatusFromString parses a persisted status string, defaulting to CREATED
// on an unrecognized value so deserialization never panics.
func StatusFromString(s string) Status {
	switch Status(s) {
	case StatusCreated, StatusWaitingForPlayer, StatusInProgress, StatusCompleted, StatusCancelled:
		return Status(s)
	default:
		return StatusCreated
	}
}

// CreatedAtTime returns CreatedAt as a time.Time for display formatting.
func (t *Toss) CreatedAtTime() time.Time {
	return time.UnixMilli(t.CreatedAt)
}
