package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tossbot/domain/entities"
)

func TestInMemWallet_CreateIsIdempotentPerUser(t *testing.T) {
	w := NewInMemWallet()

	first, err := w.Create(context.Background(), "7")
	require.NoError(t, err)
	second, err := w.Create(context.Background(), "7")
	require.NoError(t, err)

	assert.Equal(t, first.Address, second.Address)
}

func TestInMemWallet_Transfer_RejectsInsufficientFunds(t *testing.T) {
	w := NewInMemWallet()
	wallet, err := w.Create(context.Background(), "recipient")
	require.NoError(t, err)

	_, err = w.Transfer(context.Background(), "sender", wallet.Address, 1.0)
	assert.ErrorIs(t, err, entities.ErrInsufficientFunds)
}

func TestInMemWallet_Transfer_RejectsAmountAboveMax(t *testing.T) {
	w := NewInMemWallet()
	w.Credit("sender", 100)
	wallet, err := w.Create(context.Background(), "recipient")
	require.NoError(t, err)

	_, err = w.Transfer(context.Background(), "sender", wallet.Address, 11)
	assert.ErrorIs(t, err, entities.ErrAmountTooLarge)
}

func TestInMemWallet_Transfer_RejectsInvalidAddress(t *testing.T) {
	w := NewInMemWallet()
	w.Credit("sender", 1)

	_, err := w.Transfer(context.Background(), "sender", "not-an-address", 0.1)
	assert.ErrorIs(t, err, entities.ErrInvalidAddress)
}

func TestInMemWallet_Transfer_SucceedsAndDebitsBalance(t *testing.T) {
	w := NewInMemWallet()
	w.Credit("sender", 1)
	wallet, err := w.Create(context.Background(), "recipient")
	require.NoError(t, err)

	result, err := w.Transfer(context.Background(), "sender", wallet.Address, 0.4)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Hash)

	balance, err := w.Balance(context.Background(), "sender")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, balance, 1e-9)
}
