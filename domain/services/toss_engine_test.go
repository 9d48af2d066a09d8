package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
	"tossbot/domain/testhelpers"
)

func newEngineFixtures() (*testhelpers.MockStore, *testhelpers.MockWalletProvider, *testhelpers.MockChainWatcher, *testhelpers.MockEventPublisher) {
	return &testhelpers.MockStore{}, &testhelpers.MockWalletProvider{}, &testhelpers.MockChainWatcher{}, &testhelpers.MockEventPublisher{}
}

func TestTossEngine_Create_AllocatesIDAndEscrowWallet(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	store.On("ListTosses", mockCtx).Return([]*entities.Toss{}, nil)
	wallets.On("Create", mockCtx, "1").Return(&entities.Wallet{UserID: "1", Address: "0xescrow1"}, nil)
	store.On("PutWallet", mockCtx, mockAnythingWallet()).Return(nil)
	store.On("PutToss", mockCtx, mockAnythingToss()).Return(nil)
	watcher.On("AddWallet", "0xescrow1", "1").Return()
	pub.On("Publish", mockAnythingEvent()).Return(nil)

	toss, err := engine.Create(context.Background(), "alice", interfaces.ParsedToss{
		Topic:   "rain tomorrow",
		Options: [2]string{"yes", "no"},
		Stake:   0.1,
	})

	require.NoError(t, err)
	assert.Equal(t, "1", toss.ID)
	assert.Equal(t, "0xescrow1", toss.WalletAddress)
	assert.Equal(t, entities.StatusCreated, toss.Status)
	watcher.AssertCalled(t, "AddWallet", "0xescrow1", "1")
}

func TestTossEngine_Create_AllocatesIDNumericallyPastTwoDigits(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	store.On("ListTosses", mockCtx).Return([]*entities.Toss{
		{ID: "9", ConversationID: "other-conv", Status: entities.StatusCompleted},
		{ID: "10", ConversationID: "other-conv", Status: entities.StatusCompleted},
	}, nil)
	wallets.On("Create", mockCtx, "11").Return(&entities.Wallet{UserID: "11", Address: "0xescrow11"}, nil)
	store.On("PutWallet", mockCtx, mockAnythingWallet()).Return(nil)
	store.On("PutToss", mockCtx, mockAnythingToss()).Return(nil)
	watcher.On("AddWallet", "0xescrow11", "11").Return()
	pub.On("Publish", mockAnythingEvent()).Return(nil)

	toss, err := engine.Create(context.Background(), "alice", interfaces.ParsedToss{
		Topic:          "rain tomorrow",
		Options:        [2]string{"yes", "no"},
		Stake:          0.1,
		ConversationID: "new-conv",
	})

	require.NoError(t, err)
	assert.Equal(t, "11", toss.ID)
}

func TestTossEngine_Create_RejectsWhenConversationAlreadyHasActiveToss(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	store.On("ListTosses", mockCtx).Return([]*entities.Toss{
		{ID: "3", ConversationID: "conv-1", Status: entities.StatusWaitingForPlayer},
	}, nil)

	_, err := engine.Create(context.Background(), "alice", interfaces.ParsedToss{
		Topic:          "second toss",
		Options:        [2]string{"yes", "no"},
		Stake:          0.1,
		ConversationID: "conv-1",
	})

	assert.ErrorIs(t, err, entities.ErrActiveTossExists)
	wallets.AssertNotCalled(t, "Create", mockCtx, mock.Anything)
}

func TestTossEngine_Create_RejectsStakeAboveMax(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	_, err := engine.Create(context.Background(), "alice", interfaces.ParsedToss{
		Topic:   "too big",
		Options: [2]string{"yes", "no"},
		Stake:   100,
	})

	assert.ErrorIs(t, err, entities.ErrAmountTooLarge)
	store.AssertNotCalled(t, "ListTosses", mockCtx)
}

func TestTossEngine_AddParticipant_RejectsDuplicateJoin(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	toss := newTestToss()
	toss.Status = entities.StatusWaitingForPlayer
	toss.AddParticipant("bob", "no", entities.PickExplicit)

	store.On("GetToss", mockCtx, "7").Return(toss, nil)

	_, err := engine.AddParticipant(context.Background(), "7", "bob", "yes", true)

	assert.ErrorIs(t, err, entities.ErrDuplicateParticipant)
}

func TestTossEngine_AddParticipant_RejectsUnpaid(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	toss := newTestToss()
	toss.Status = entities.StatusCreated
	store.On("GetToss", mockCtx, "7").Return(toss, nil)

	_, err := engine.AddParticipant(context.Background(), "7", "carol", "yes", false)

	assert.ErrorIs(t, err, entities.ErrUnpaid)
}

func TestTossEngine_Close_RejectsNonCreator(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	toss := newTestToss()
	toss.Status = entities.StatusWaitingForPlayer
	toss.AddParticipant("bob", "yes", entities.PickExplicit)
	toss.AddParticipant("carol", "no", entities.PickExplicit)
	store.On("GetToss", mockCtx, "7").Return(toss, nil)

	_, err := engine.Close(context.Background(), "7", "mallory", "yes")

	assert.ErrorIs(t, err, entities.ErrNotCreator)
}

func TestTossEngine_Close_RejectsFewerThanTwoParticipants(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	toss := newTestToss()
	toss.Status = entities.StatusWaitingForPlayer
	toss.AddParticipant("bob", "yes", entities.PickExplicit)
	store.On("GetToss", mockCtx, "7").Return(toss, nil)

	_, err := engine.Close(context.Background(), "7", "alice", "yes")

	assert.ErrorIs(t, err, entities.ErrNotEnoughPlayers)
}

func TestTossEngine_Close_DistributesEqualSplitToWinners(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	toss := newTestToss()
	toss.Status = entities.StatusWaitingForPlayer
	toss.AddParticipant("bob", "yes", entities.PickExplicit)
	toss.AddParticipant("carol", "yes", entities.PickExplicit)
	toss.AddParticipant("dave", "no", entities.PickExplicit)

	store.On("GetToss", mockCtx, "7").Return(toss, nil)
	store.On("PutToss", mockCtx, mockAnythingToss()).Return(nil)
	watcher.On("RemoveWallet", "0xescrow").Return()
	pub.On("Publish", mockAnythingEvent()).Return(nil)

	wallets.On("Load", mockCtx, "bob").Return(&entities.Wallet{UserID: "bob", Address: "0xbob"}, nil)
	wallets.On("Load", mockCtx, "carol").Return(&entities.Wallet{UserID: "carol", Address: "0xcarol"}, nil)
	wallets.On("Transfer", mockCtx, "7", "0xbob", 0.15).Return(interfaces.TransferResult{Hash: "0xh1", Link: "link1"}, nil)
	wallets.On("Transfer", mockCtx, "7", "0xcarol", 0.15).Return(interfaces.TransferResult{Hash: "0xh2", Link: "link2"}, nil)

	result, err := engine.Close(context.Background(), "7", "alice", "yes")

	require.NoError(t, err)
	assert.Equal(t, entities.StatusCompleted, result.Status)
	assert.Equal(t, "yes", result.Result)
	assert.True(t, result.PaymentSuccess)
	assert.Equal(t, "0xh1", result.TxHash)
	watcher.AssertCalled(t, "RemoveWallet", "0xescrow")
}

func TestTossEngine_Close_NoWinnersCompletesWithNoTransfers(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	toss := newTestToss()
	toss.Status = entities.StatusWaitingForPlayer
	toss.AddParticipant("bob", "no", entities.PickExplicit)
	toss.AddParticipant("carol", "no", entities.PickExplicit)

	store.On("GetToss", mockCtx, "7").Return(toss, nil)
	store.On("PutToss", mockCtx, mockAnythingToss()).Return(nil)
	watcher.On("RemoveWallet", "0xescrow").Return()
	pub.On("Publish", mockAnythingEvent()).Return(nil)

	result, err := engine.Close(context.Background(), "7", "alice", "yes")

	require.NoError(t, err)
	assert.Equal(t, entities.StatusCompleted, result.Status)
	assert.True(t, result.PaymentSuccess)
}

func TestTossEngine_ForceClose_NoParticipantsCancelsImmediately(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	toss := newTestToss()
	store.On("GetToss", mockCtx, "7").Return(toss, nil)
	store.On("PutToss", mockCtx, mockAnythingToss()).Return(nil)
	watcher.On("RemoveWallet", "0xescrow").Return()
	pub.On("Publish", mockAnythingEvent()).Return(nil)

	result, err := engine.ForceClose(context.Background(), "7", "alice")

	require.NoError(t, err)
	assert.Equal(t, entities.StatusCancelled, result.Status)
	assert.Equal(t, entities.ResultForceClosed, result.Result)
	assert.True(t, result.PaymentSuccess)
}

func TestTossEngine_ForceClose_RefundsEveryParticipantTheirStake(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	toss := newTestToss()
	toss.Status = entities.StatusWaitingForPlayer
	toss.AddParticipant("bob", "yes", entities.PickExplicit)
	toss.AddParticipant("carol", "no", entities.PickExplicit)

	store.On("GetToss", mockCtx, "7").Return(toss, nil)
	store.On("PutToss", mockCtx, mockAnythingToss()).Return(nil)
	watcher.On("RemoveWallet", "0xescrow").Return()
	pub.On("Publish", mockAnythingEvent()).Return(nil)

	wallets.On("Load", mockCtx, "bob").Return(&entities.Wallet{UserID: "bob", Address: "0xbob"}, nil)
	wallets.On("Load", mockCtx, "carol").Return(&entities.Wallet{UserID: "carol", Address: "0xcarol"}, nil)
	wallets.On("Transfer", mockCtx, "7", "0xbob", 0.1).Return(interfaces.TransferResult{Hash: "0xr1", Link: "rlink1"}, nil)
	wallets.On("Transfer", mockCtx, "7", "0xcarol", 0.1).Return(interfaces.TransferResult{Hash: "0xr2", Link: "rlink2"}, nil)

	result, err := engine.ForceClose(context.Background(), "7", "alice")

	require.NoError(t, err)
	assert.Equal(t, entities.StatusCancelled, result.Status)
	assert.True(t, result.PaymentSuccess)
}

func TestTossEngine_ForceClose_RecordsFailedRefundOnTransferError(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	toss := newTestToss()
	toss.Status = entities.StatusWaitingForPlayer
	toss.AddParticipant("bob", "yes", entities.PickExplicit)
	toss.AddParticipant("carol", "no", entities.PickExplicit)

	store.On("GetToss", mockCtx, "7").Return(toss, nil)
	store.On("PutToss", mockCtx, mockAnythingToss()).Return(nil)
	watcher.On("RemoveWallet", "0xescrow").Return()
	pub.On("Publish", mockAnythingEvent()).Return(nil)

	wallets.On("Load", mockCtx, "bob").Return(&entities.Wallet{UserID: "bob", Address: "0xbob"}, nil)
	wallets.On("Load", mockCtx, "carol").Return(nil, entities.ErrProviderUnavailable)
	wallets.On("Transfer", mockCtx, "7", "0xbob", 0.1).Return(interfaces.TransferResult{Hash: "0xr1", Link: "rlink1"}, nil)

	result, err := engine.ForceClose(context.Background(), "7", "alice")

	require.NoError(t, err)
	assert.Contains(t, result.FailedRefunds, "carol")
	assert.True(t, result.PaymentSuccess)
}

func TestTossEngine_Refresh_MarksUnresolvedBalanceAsUnknown(t *testing.T) {
	store, wallets, watcher, pub := newEngineFixtures()
	engine := NewTossEngine(store, wallets, watcher, pub)

	toss := newTestToss()
	toss.Status = entities.StatusWaitingForPlayer
	toss.AddParticipant("bob", "yes", entities.PickExplicit)

	store.On("GetToss", mockCtx, "7").Return(toss, nil)
	store.On("PutToss", mockCtx, mockAnythingToss()).Return(nil)
	pub.On("Publish", mockAnythingEvent()).Return(nil)

	// balance reflects two paid-in stakes but only one recorded participant.
	wallets.On("Balance", mockCtx, "7").Return(0.2, nil)

	_, err := engine.Refresh(context.Background(), "7")

	require.NoError(t, err)
	assert.Len(t, toss.Participants, 2)
	assert.Equal(t, entities.PickUnknown, toss.ParticipantOptions[1].Kind)
}

func mockAnythingWallet() interface{} { return mock.AnythingOfType("*entities.Wallet") }
func mockAnythingToss() interface{}   { return mock.AnythingOfType("*entities.Toss") }
func mockAnythingEvent() interface{}  { return mock.AnythingOfType("interfaces.TossEvent") }
