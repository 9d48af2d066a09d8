package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
)

// tossEngine implements interfaces.TossEngine: the per-toss state machine
// described in the component design. It owns a map of per-id mutexes so
// that concurrent callers serialize on a single toss record without
// blocking unrelated tosses, and it is the sole mutator of Toss records.
type tossEngine struct {
	store          interfaces.Store
	wallets        interfaces.WalletProvider
	watcher        interfaces.ChainWatcher
	validation     *tossValidation
	eventPublisher interfaces.EventPublisher

	idMu sync.Mutex // guards allocation of a new toss id only

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	handlersMu sync.Mutex
	handlers   []func(interfaces.TossEvent)
}

// NewTossEngine constructs the engine with its dependencies injected at
// construction, matching the teacher's constructor-injected service style.
func NewTossEngine(store interfaces.Store, wallets interfaces.WalletProvider, watcher interfaces.ChainWatcher, eventPublisher interfaces.EventPublisher) *tossEngine {
	return &tossEngine{
		store:          store,
		wallets:        wallets,
		watcher:        watcher,
		validation:     NewTossValidation(),
		eventPublisher: eventPublisher,
		locks:          make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-id mutex for tossID, creating it under a short
// global lock if this is the first time the id has been touched.
func (e *tossEngine) lockFor(tossID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	m, ok := e.locks[tossID]
	if !ok {
		m = &sync.Mutex{}
		e.locks[tossID] = m
	}
	return m
}

// OnTossEvent registers a handler invoked synchronously after every
// committed transition. This is the hook that inverts the teacher's
// transport-back-pointer pattern: the engine never holds a reference to
// AgentFront or the transport, only to its own subscriber list.
func (e *tossEngine) OnTossEvent(handler func(interfaces.TossEvent)) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers = append(e.handlers, handler)
}

func (e *tossEngine) emit(evt interfaces.TossEvent) {
	e.handlersMu.Lock()
	handlers := append([]func(interfaces.TossEvent){}, e.handlers...)
	e.handlersMu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
	if e.eventPublisher != nil {
		if err := e.eventPublisher.Publish(evt); err != nil {
			log.WithFields(log.Fields{
				"tossId": evt.Toss.ID,
				"event":  evt.Type,
			}).WithError(err).Error("failed to publish toss event")
		}
	}
}

// Create allocates a new toss, opens its escrow wallet, persists it and
// registers the wallet with the ChainWatcher.
func (e *tossEngine) Create(ctx context.Context, creator string, parsed interfaces.ParsedToss) (*entities.Toss, error) {
	if err := e.validation.ValidateStake(parsed.Stake); err != nil {
		return nil, err
	}
	if err := e.validation.ValidateOptions(parsed.Options); err != nil {
		return nil, err
	}

	id, err := e.allocateID(ctx, parsed.ConversationID)
	if err != nil {
		return nil, err
	}

	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	wallet, err := e.wallets.Create(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrProviderUnavailable, err)
	}

	toss := &entities.Toss{
		ID:             id,
		Creator:        creator,
		ConversationID: parsed.ConversationID,
		Stake:          parsed.Stake,
		Topic:          parsed.Topic,
		Options:        parsed.Options,
		WalletAddress:  wallet.Address,
		CreatedAt:      time.Now().UnixMilli(),
		Status:         entities.StatusCreated,
	}

	if err := e.store.PutWallet(ctx, wallet); err != nil {
		return nil, err
	}
	if err := e.store.PutToss(ctx, toss); err != nil {
		return nil, err
	}

	e.watcher.AddWallet(wallet.Address, id)
	e.emit(interfaces.TossEvent{Type: interfaces.EventCreated, Toss: toss})
	return toss, nil
}

// allocateID holds a short global lock only long enough to check that
// conversationID has no existing non-terminal toss and compute the next
// monotone id from the highest existing one, both against the same
// snapshot of the store so a concurrent Create for the same conversation
// cannot race past the active-toss check.
func (e *tossEngine) allocateID(ctx context.Context, conversationID string) (string, error) {
	e.idMu.Lock()
	defer e.idMu.Unlock()

	tosses, err := e.store.ListTosses(ctx)
	if err != nil {
		return "", err
	}

	highest := ""
	highestN := int64(-1)
	for _, t := range tosses {
		if t.ConversationID == conversationID && !t.IsTerminal() {
			return "", fmt.Errorf("%w: toss %s", entities.ErrActiveTossExists, t.ID)
		}
		n, err := strconv.ParseInt(t.ID, 10, 64)
		if err != nil {
			continue
		}
		if n > highestN {
			highestN = n
			highest = t.ID
		}
	}
	return entities.NextTossID(highest), nil
}

// AddParticipant validates and appends a participant, matching the
// at-least-once idempotence contract the correlation layer relies on: a
// second call for the same user is rejected rather than double-counted.
func (e *tossEngine) AddParticipant(ctx context.Context, tossID, userID, option string, paid bool) (*entities.Toss, error) {
	lock := e.lockFor(tossID)
	lock.Lock()
	defer lock.Unlock()

	toss, err := e.store.GetToss(ctx, tossID)
	if err != nil {
		return nil, err
	}
	if err := e.validation.CanAddParticipant(toss, userID, option, paid); err != nil {
		return nil, err
	}

	canonical, _ := toss.ResolveOption(option)
	toss.AddParticipant(userID, canonical, entities.PickExplicit)

	if err := e.store.PutToss(ctx, toss); err != nil {
		return nil, err
	}
	e.emit(interfaces.TossEvent{Type: interfaces.EventParticipantAdded, Toss: toss})
	return toss, nil
}

// Close declares a winning option, distributes the pot to matching
// participants in equal shares, and terminates the toss as COMPLETED.
func (e *tossEngine) Close(ctx context.Context, tossID, caller, winningOption string) (*entities.Toss, error) {
	lock := e.lockFor(tossID)
	lock.Lock()
	defer lock.Unlock()

	toss, err := e.store.GetToss(ctx, tossID)
	if err != nil {
		return nil, err
	}
	if err := e.validation.CanClose(toss, caller, winningOption); err != nil {
		return nil, err
	}

	canonical, _ := toss.ResolveOption(winningOption)
	toss.Status = entities.StatusInProgress
	if err := e.store.PutToss(ctx, toss); err != nil {
		return nil, err
	}

	winners := toss.WinnersFor(canonical)
	totalPot := toss.TotalPot()

	toss.Result = canonical
	if len(winners) == 0 {
		toss.Status = entities.StatusCompleted
		toss.PaymentSuccess = true
	} else {
		payouts := e.validation.EqualSplitPayouts(winners, totalPot)
		e.distribute(ctx, toss, payouts)
		toss.Status = entities.StatusCompleted
	}

	if err := e.store.PutToss(ctx, toss); err != nil {
		return nil, err
	}
	e.watcher.RemoveWallet(toss.WalletAddress)
	e.emit(interfaces.TossEvent{Type: interfaces.EventClosed, Toss: toss})
	return toss, nil
}

// ForceClose refunds every participant their stake and terminates the toss
// as CANCELLED. A toss with no participants terminates immediately with no
// transfers.
func (e *tossEngine) ForceClose(ctx context.Context, tossID, caller string) (*entities.Toss, error) {
	lock := e.lockFor(tossID)
	lock.Lock()
	defer lock.Unlock()

	toss, err := e.store.GetToss(ctx, tossID)
	if err != nil {
		return nil, err
	}
	if err := e.validation.CanForceClose(toss, caller); err != nil {
		return nil, err
	}

	toss.Result = entities.ResultForceClosed

	if len(toss.Participants) == 0 {
		toss.Status = entities.StatusCancelled
		toss.PaymentSuccess = true
		if err := e.store.PutToss(ctx, toss); err != nil {
			return nil, err
		}
		e.watcher.RemoveWallet(toss.WalletAddress)
		e.emit(interfaces.TossEvent{Type: interfaces.EventForceClosed, Toss: toss})
		return toss, nil
	}

	toss.Status = entities.StatusInProgress
	if err := e.store.PutToss(ctx, toss); err != nil {
		return nil, err
	}

	refunds := make(map[string]float64, len(toss.Participants))
	for _, p := range toss.Participants {
		refunds[p] = toss.Stake
	}
	e.distribute(ctx, toss, refunds)
	toss.Status = entities.StatusCancelled

	if err := e.store.PutToss(ctx, toss); err != nil {
		return nil, err
	}
	e.watcher.RemoveWallet(toss.WalletAddress)
	e.emit(interfaces.TossEvent{Type: interfaces.EventForceClosed, Toss: toss})
	return toss, nil
}

// distribute calls WalletProvider.Transfer once per recipient, recording
// the first successful {hash,link} and tracking per-recipient failures.
// Transfer failures are partial-success: the toss still completes and the
// failures are recorded for manual recovery, never retried automatically.
func (e *tossEngine) distribute(ctx context.Context, toss *entities.Toss, payouts map[string]float64) {
	successCount := 0
	for _, userID := range toss.Participants {
		amount, ok := payouts[userID]
		if !ok || amount <= 0 {
			continue
		}
		address, err := e.recipientAddress(ctx, userID)
		if err != nil {
			e.recordFailure(toss, userID)
			continue
		}
		result, err := e.wallets.Transfer(ctx, toss.ID, address, amount)
		if err != nil {
			log.WithFields(log.Fields{
				"tossId": toss.ID,
				"to":     userID,
			}).WithError(err).Error("payout transfer failed")
			e.recordFailure(toss, userID)
			continue
		}
		successCount++
		if toss.TxHash == "" {
			toss.TxHash = result.Hash
			toss.TxLink = result.Link
		}
	}
	toss.PaymentSuccess = successCount > 0
}

// recipientAddress resolves a participant's escrow wallet address. The
// engine always creates one escrow wallet per toss (userId == tossId), so
// a participant's payout address is looked up from their own wallet
// record, which the out-of-scope wallet provider is responsible for having
// created when the participant first interacted with the agent.
func (e *tossEngine) recipientAddress(ctx context.Context, userID string) (string, error) {
	wallet, err := e.wallets.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	return wallet.Address, nil
}

func (e *tossEngine) recordFailure(toss *entities.Toss, userID string) {
	if toss.Status == entities.StatusCancelled || toss.Result == entities.ResultForceClosed {
		toss.FailedRefunds = append(toss.FailedRefunds, userID)
		return
	}
	toss.FailedWinners = append(toss.FailedWinners, userID)
}

// Refresh reconciles the escrow balance against recorded participants. Per
// the resolved open question, unidentified paid-in participants are marked
// UNKNOWN rather than guessing the first option, and are persisted one at a
// time so a crash mid-reconciliation never loses state silently.
func (e *tossEngine) Refresh(ctx context.Context, tossID string) (string, error) {
	lock := e.lockFor(tossID)
	lock.Lock()
	defer lock.Unlock()

	toss, err := e.store.GetToss(ctx, tossID)
	if err != nil {
		return "", err
	}

	balance, err := e.wallets.Balance(ctx, toss.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrProviderUnavailable, err)
	}

	unrecorded := e.validation.UnrecordedParticipants(balance, toss.Stake, len(toss.Participants))
	for i := 0; i < unrecorded; i++ {
		toss.AddParticipant(fmt.Sprintf("unknown-%s-%d", toss.ID, len(toss.Participants)+1), "UNKNOWN", entities.PickUnknown)
		if err := e.store.PutToss(ctx, toss); err != nil {
			return "", err
		}
	}

	e.emit(interfaces.TossEvent{Type: interfaces.EventRefreshed, Toss: toss})
	return e.statusLine(toss, unrecorded), nil
}

func (e *tossEngine) statusLine(toss *entities.Toss, newlyFound int) string {
	return fmt.Sprintf("toss %s: %s — %d participant(s), status %s, %d newly reconciled",
		toss.ID, toss.Topic, len(toss.Participants), toss.Status, newlyFound)
}

func (e *tossEngine) Status(ctx context.Context, tossID string) (*entities.Toss, error) {
	return e.store.GetToss(ctx, tossID)
}

func (e *tossEngine) GetActiveForConv(ctx context.Context, conversationID string) (*entities.Toss, error) {
	tosses, err := e.store.ListTosses(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tosses {
		if t.ConversationID == conversationID && !t.IsTerminal() {
			return t, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (e *tossEngine) GetByAddress(ctx context.Context, address string) (*entities.Toss, error) {
	wallet, err := e.store.FindWalletByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	return e.store.GetToss(ctx, wallet.UserID)
}
