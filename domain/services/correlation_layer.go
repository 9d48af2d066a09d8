package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
)

// VerificationInitialInterval, VerificationMultiplier and
// VerificationMaxElapsed are the retry parameters for step 1 of the
// correlation procedure: initial 5s, x1.5 backoff, total wall time capped
// at 30s. At the nominal intervals (before the library's default jitter)
// that allows four attempts, at about 0s, 5s, 12.5s and 23.75s.
const (
	VerificationInitialInterval = 5 * time.Second
	VerificationMultiplier      = 1.5
	VerificationMaxElapsed      = 30 * time.Second
)

// correlationLayer implements interfaces.CorrelationLayer: verify, require
// success, look up wallet, look up toss, try explicit metadata, fall back
// to the amount codec, check idempotence, emit. Recipient, sender and
// minor-unit amount are taken from the TransactionEvent as given; the
// transaction's call data is not decoded, so an event that carries only a
// hash finds no escrow wallet and stays unresolved.
type correlationLayer struct {
	store    interfaces.Store
	codec    interfaces.AmountCodec
	verifier interfaces.TxVerifier
}

// NewCorrelationLayer constructs the correlation layer with its
// dependencies injected, matching the teacher's constructor style.
func NewCorrelationLayer(store interfaces.Store, codec interfaces.AmountCodec, verifier interfaces.TxVerifier) *correlationLayer {
	return &correlationLayer{store: store, codec: codec, verifier: verifier}
}

func (c *correlationLayer) Correlate(ctx context.Context, event interfaces.TransactionEvent, metadata interfaces.MetadataBag) interfaces.CorrelationResult {
	if err := c.verifyWithBackoff(ctx, event.Hash); err != nil {
		if errors.Is(err, entities.ErrFailedTx) {
			return interfaces.CorrelationResult{Unresolved: true, Reason: entities.ErrFailedTx}
		}
		return interfaces.CorrelationResult{Unresolved: true, Reason: entities.ErrUnverifiedTx}
	}

	wallet, err := c.store.FindWalletByAddress(ctx, event.To)
	if err != nil {
		// Not addressed to any escrow wallet we manage: silently discard.
		return interfaces.CorrelationResult{Unresolved: true, Reason: entities.ErrNotFound}
	}

	toss, err := c.store.GetToss(ctx, wallet.UserID)
	if err != nil {
		return interfaces.CorrelationResult{Unresolved: true, Reason: entities.ErrNotFound}
	}
	if toss.IsTerminal() {
		return interfaces.CorrelationResult{Unresolved: true, Reason: entities.ErrBadState}
	}

	option, ok := c.resolveOption(toss, event, metadata)
	if !ok {
		return interfaces.CorrelationResult{Unresolved: true, Reason: entities.ErrUnresolvedOption}
	}

	if toss.HasParticipant(event.From) {
		// At-least-once delivery: a replayed transfer for an existing
		// participant is discarded rather than applied twice.
		return interfaces.CorrelationResult{Unresolved: true, Reason: entities.ErrDuplicateParticipant}
	}

	return interfaces.CorrelationResult{TossID: toss.ID, Option: option, SenderID: event.From}
}

// verifyWithBackoff retries TxVerifier.Verify with the spec's exponential
// backoff policy, using cenkalti/backoff/v4 rather than a hand-rolled sleep
// loop. It fails closed: any outcome other than a confirmed success (after
// retries are exhausted) is treated as UNVERIFIED, returned as
// entities.ErrUnverifiedTx. A verifier that reports a confirmed on-chain
// failure returns entities.ErrFailedTx immediately via backoff.Permanent,
// short-circuiting the rest of the retry budget rather than waiting it out
// on a transaction that will never succeed.
func (c *correlationLayer) verifyWithBackoff(ctx context.Context, hash string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = VerificationInitialInterval
	b.Multiplier = VerificationMultiplier
	b.MaxElapsedTime = VerificationMaxElapsed

	op := func() error {
		ok, err := c.verifier.Verify(ctx, hash)
		if err != nil {
			if errors.Is(err, entities.ErrFailedTx) {
				return backoff.Permanent(err)
			}
			return err
		}
		if !ok {
			return entities.ErrUnverifiedTx
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, entities.ErrFailedTx) {
			log.WithField("hash", hash).Warn("transaction confirmed failed on-chain")
			return err
		}
		log.WithField("hash", hash).WithError(err).Warn("transaction verification did not succeed in time")
		return entities.ErrUnverifiedTx
	}
	return nil
}

// resolveOption implements the fallback ladder: explicit metadata first
// (authoritative when present), amount-encoded remainder second (survives
// hostile re-serialization).
func (c *correlationLayer) resolveOption(toss *entities.Toss, event interfaces.TransactionEvent, metadata interfaces.MetadataBag) (string, bool) {
	if raw, ok := metadata.Option(); ok {
		if canonical, ok := toss.ResolveOption(raw); ok {
			return canonical, true
		}
	}

	index, ok := c.codec.Decode(event.Value)
	if !ok || index < 0 || index >= len(toss.Options) {
		return "", false
	}
	return toss.Options[index], true
}
