package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tossbot/domain/entities"
	"tossbot/domain/testhelpers"
)

func TestReconstructWatchedWallets_ReAddsOnlyNonTerminalTosses(t *testing.T) {
	store := &testhelpers.MockStore{}
	watcher := &testhelpers.MockChainWatcher{}

	store.On("ListTosses", mock.Anything).Return([]*entities.Toss{
		{ID: "1", WalletAddress: "0xescrow1", Status: entities.StatusWaitingForPlayer},
		{ID: "2", WalletAddress: "0xescrow2", Status: entities.StatusCompleted},
		{ID: "3", WalletAddress: "0xescrow3", Status: entities.StatusInProgress},
	}, nil)
	watcher.On("AddWallet", "0xescrow1", "1").Return()
	watcher.On("AddWallet", "0xescrow3", "3").Return()

	require.NoError(t, reconstructWatchedWallets(context.Background(), store, watcher))

	watcher.AssertCalled(t, "AddWallet", "0xescrow1", "1")
	watcher.AssertCalled(t, "AddWallet", "0xescrow3", "3")
	watcher.AssertNotCalled(t, "AddWallet", "0xescrow2", "2")
	assert.Len(t, watcher.Calls, 2)
}
