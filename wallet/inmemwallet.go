package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
	"tossbot/domain/services"
)

// inMemWallet is a deterministic, in-process WalletProvider for tests and
// local runs that have no real custodial wallet service configured. It
// generates a stable fake address per userId rather than a real key pair,
// since key custody is explicitly out of scope.
type inMemWallet struct {
	mu       sync.Mutex
	wallets  map[string]*entities.Wallet
	balances map[string]float64
	nextAddr uint64
}

// NewInMemWallet constructs the in-memory reference WalletProvider.
func NewInMemWallet() *inMemWallet {
	return &inMemWallet{
		wallets:  make(map[string]*entities.Wallet),
		balances: make(map[string]float64),
	}
}

func (w *inMemWallet) Create(ctx context.Context, userID string) (*entities.Wallet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.wallets[userID]; ok {
		return existing, nil
	}
	w.nextAddr++
	address := fmt.Sprintf("0x%040x", w.nextAddr)
	wallet := &entities.Wallet{UserID: userID, Address: address, ProviderBlob: "inmem"}
	w.wallets[userID] = wallet
	return wallet, nil
}

func (w *inMemWallet) Load(ctx context.Context, userID string) (*entities.Wallet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wallet, ok := w.wallets[userID]
	if !ok {
		return nil, entities.ErrNotFound
	}
	return wallet, nil
}

func (w *inMemWallet) Balance(ctx context.Context, userID string) (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID], nil
}

// Credit deposits funds into userID's balance, simulating an on-chain
// transfer landing in the wallet. Test-only helper; not part of
// interfaces.WalletProvider.
func (w *inMemWallet) Credit(userID string, amount float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[userID] += amount
}

func (w *inMemWallet) Transfer(ctx context.Context, fromUserID, toAddress string, amount float64) (interfaces.TransferResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if amount > services.MaxStake {
		return interfaces.TransferResult{}, entities.ErrAmountTooLarge
	}
	if !common.IsHexAddress(toAddress) {
		return interfaces.TransferResult{}, entities.ErrInvalidAddress
	}
	if w.balances[fromUserID] < amount {
		return interfaces.TransferResult{}, entities.ErrInsufficientFunds
	}

	w.balances[fromUserID] -= amount
	hash := fmt.Sprintf("0xinmem%d", w.nextAddr)
	w.nextAddr++
	return interfaces.TransferResult{Hash: hash, Link: "inmem://" + hash}, nil
}
