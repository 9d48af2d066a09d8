package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
	"tossbot/domain/testhelpers"
)

var mockCtx = mock.Anything

func newTestToss() *entities.Toss {
	return &entities.Toss{
		ID:            "7",
		Creator:       "alice",
		Stake:         0.1,
		Topic:         "rain tomorrow",
		Options:       [2]string{"yes", "no"},
		WalletAddress: "0xescrow",
		Status:        entities.StatusCreated,
	}
}

func TestCorrelationLayer_ExplicitMetadataWins(t *testing.T) {
	store := &testhelpers.MockStore{}
	verifier := &testhelpers.MockTxVerifier{}
	codec := NewAmountCodec()
	layer := NewCorrelationLayer(store, codec, verifier)

	toss := newTestToss()
	verifier.On("Verify", mockCtx, "0xhash").Return(true, nil)
	store.On("FindWalletByAddress", mockCtx, "0xescrow").Return(&entities.Wallet{UserID: "7", Address: "0xescrow"}, nil)
	store.On("GetToss", mockCtx, "7").Return(toss, nil)

	event := interfaces.TransactionEvent{Hash: "0xhash", From: "bob", To: "0xescrow", Value: 100_002}
	metadata := interfaces.MetadataBag{"option": "yes"}

	result := layer.Correlate(context.Background(), event, metadata)

	assert.False(t, result.Unresolved)
	assert.Equal(t, "7", result.TossID)
	assert.Equal(t, "yes", result.Option)
	assert.Equal(t, "bob", result.SenderID)
}

func TestCorrelationLayer_FallsBackToAmountCodec(t *testing.T) {
	store := &testhelpers.MockStore{}
	verifier := &testhelpers.MockTxVerifier{}
	codec := NewAmountCodec()
	layer := NewCorrelationLayer(store, codec, verifier)

	toss := newTestToss()
	verifier.On("Verify", mockCtx, "0xhash").Return(true, nil)
	store.On("FindWalletByAddress", mockCtx, "0xescrow").Return(&entities.Wallet{UserID: "7", Address: "0xescrow"}, nil)
	store.On("GetToss", mockCtx, "7").Return(toss, nil)

	// Stake 0.1 -> 100_000 base, option index 1 -> remainder 2.
	event := interfaces.TransactionEvent{Hash: "0xhash", From: "bob", To: "0xescrow", Value: 100_002}
	metadata := interfaces.MetadataBag{}

	result := layer.Correlate(context.Background(), event, metadata)

	assert.False(t, result.Unresolved)
	assert.Equal(t, "no", result.Option)
}

func TestCorrelationLayer_UnresolvedWhenRemainderOutOfRangeForToss(t *testing.T) {
	store := &testhelpers.MockStore{}
	verifier := &testhelpers.MockTxVerifier{}
	codec := NewAmountCodec()
	layer := NewCorrelationLayer(store, codec, verifier)

	toss := newTestToss()
	verifier.On("Verify", mockCtx, "0xhash").Return(true, nil)
	store.On("FindWalletByAddress", mockCtx, "0xescrow").Return(&entities.Wallet{UserID: "7", Address: "0xescrow"}, nil)
	store.On("GetToss", mockCtx, "7").Return(toss, nil)

	// remainder 5 -> index 4, out of range for a two-option toss.
	event := interfaces.TransactionEvent{Hash: "0xhash", From: "bob", To: "0xescrow", Value: 100_005}

	result := layer.Correlate(context.Background(), event, interfaces.MetadataBag{})

	assert.True(t, result.Unresolved)
	assert.ErrorIs(t, result.Reason, entities.ErrUnresolvedOption)
}

func TestCorrelationLayer_UnverifiedTransactionIsDiscarded(t *testing.T) {
	store := &testhelpers.MockStore{}
	verifier := &testhelpers.MockTxVerifier{}
	codec := NewAmountCodec()
	layer := NewCorrelationLayer(store, codec, verifier)

	verifier.On("Verify", mockCtx, "0xhash").Return(false, nil)

	event := interfaces.TransactionEvent{Hash: "0xhash", From: "bob", To: "0xescrow", Value: 100_002}

	result := layer.Correlate(context.Background(), event, interfaces.MetadataBag{})

	assert.True(t, result.Unresolved)
	assert.ErrorIs(t, result.Reason, entities.ErrUnverifiedTx)
	store.AssertNotCalled(t, "FindWalletByAddress", mockCtx, "0xescrow")
}

func TestCorrelationLayer_FailedTxIsReportedWithoutExhaustingRetryBudget(t *testing.T) {
	store := &testhelpers.MockStore{}
	verifier := &testhelpers.MockTxVerifier{}
	codec := NewAmountCodec()
	layer := NewCorrelationLayer(store, codec, verifier)

	verifier.On("Verify", mockCtx, "0xhash").Return(false, entities.ErrFailedTx).Once()

	event := interfaces.TransactionEvent{Hash: "0xhash", From: "bob", To: "0xescrow", Value: 100_002}

	result := layer.Correlate(context.Background(), event, interfaces.MetadataBag{})

	assert.True(t, result.Unresolved)
	assert.ErrorIs(t, result.Reason, entities.ErrFailedTx)
	verifier.AssertNumberOfCalls(t, "Verify", 1)
	store.AssertNotCalled(t, "FindWalletByAddress", mockCtx, "0xescrow")
}

func TestCorrelationLayer_UnknownWalletIsDiscarded(t *testing.T) {
	store := &testhelpers.MockStore{}
	verifier := &testhelpers.MockTxVerifier{}
	codec := NewAmountCodec()
	layer := NewCorrelationLayer(store, codec, verifier)

	verifier.On("Verify", mockCtx, "0xhash").Return(true, nil)
	store.On("FindWalletByAddress", mockCtx, "0xnobody").Return(nil, entities.ErrNotFound)

	event := interfaces.TransactionEvent{Hash: "0xhash", From: "bob", To: "0xnobody", Value: 100_002}

	result := layer.Correlate(context.Background(), event, interfaces.MetadataBag{})

	assert.True(t, result.Unresolved)
	assert.ErrorIs(t, result.Reason, entities.ErrNotFound)
}

func TestCorrelationLayer_DuplicateParticipantIsIdempotent(t *testing.T) {
	store := &testhelpers.MockStore{}
	verifier := &testhelpers.MockTxVerifier{}
	codec := NewAmountCodec()
	layer := NewCorrelationLayer(store, codec, verifier)

	toss := newTestToss()
	toss.AddParticipant("bob", "no", entities.PickExplicit)

	verifier.On("Verify", mockCtx, "0xhash").Return(true, nil)
	store.On("FindWalletByAddress", mockCtx, "0xescrow").Return(&entities.Wallet{UserID: "7", Address: "0xescrow"}, nil)
	store.On("GetToss", mockCtx, "7").Return(toss, nil)

	event := interfaces.TransactionEvent{Hash: "0xhash", From: "bob", To: "0xescrow", Value: 100_002}

	result := layer.Correlate(context.Background(), event, interfaces.MetadataBag{})

	assert.True(t, result.Unresolved)
	assert.ErrorIs(t, result.Reason, entities.ErrDuplicateParticipant)
}

func TestCorrelationLayer_TerminalTossIsDiscarded(t *testing.T) {
	store := &testhelpers.MockStore{}
	verifier := &testhelpers.MockTxVerifier{}
	codec := NewAmountCodec()
	layer := NewCorrelationLayer(store, codec, verifier)

	toss := newTestToss()
	toss.Status = entities.StatusCompleted

	verifier.On("Verify", mockCtx, "0xhash").Return(true, nil)
	store.On("FindWalletByAddress", mockCtx, "0xescrow").Return(&entities.Wallet{UserID: "7", Address: "0xescrow"}, nil)
	store.On("GetToss", mockCtx, "7").Return(toss, nil)

	event := interfaces.TransactionEvent{Hash: "0xhash", From: "bob", To: "0xescrow", Value: 100_002}

	result := layer.Correlate(context.Background(), event, interfaces.MetadataBag{})

	assert.True(t, result.Unresolved)
	assert.ErrorIs(t, result.Reason, entities.ErrBadState)
}
