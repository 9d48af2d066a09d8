// Package testhelpers provides testify mocks for the domain's interfaces,
// in the same style the teacher uses for its repository mocks: one
// mock.Mock-embedding struct per interface, one method per interface
// method, translating args.Get(0) back to the concrete return type.
package testhelpers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
)

// MockStore is a mock implementation of interfaces.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) PutToss(ctx context.Context, toss *entities.Toss) error {
	return m.Called(ctx, toss).Error(0)
}

func (m *MockStore) GetToss(ctx context.Context, id string) (*entities.Toss, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Toss), args.Error(1)
}

func (m *MockStore) DeleteToss(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) ListTosses(ctx context.Context) ([]*entities.Toss, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Toss), args.Error(1)
}

func (m *MockStore) PutWallet(ctx context.Context, wallet *entities.Wallet) error {
	return m.Called(ctx, wallet).Error(0)
}

func (m *MockStore) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockStore) FindWalletByAddress(ctx context.Context, address string) (*entities.Wallet, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

// MockWalletProvider is a mock implementation of interfaces.WalletProvider.
type MockWalletProvider struct {
	mock.Mock
}

func (m *MockWalletProvider) Create(ctx context.Context, userID string) (*entities.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletProvider) Load(ctx context.Context, userID string) (*entities.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletProvider) Balance(ctx context.Context, userID string) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockWalletProvider) Transfer(ctx context.Context, fromUserID, toAddress string, amount float64) (interfaces.TransferResult, error) {
	args := m.Called(ctx, fromUserID, toAddress, amount)
	if args.Get(0) == nil {
		return interfaces.TransferResult{}, args.Error(1)
	}
	return args.Get(0).(interfaces.TransferResult), args.Error(1)
}

// MockChainWatcher is a mock implementation of interfaces.ChainWatcher.
type MockChainWatcher struct {
	mock.Mock
}

func (m *MockChainWatcher) AddWallet(address, tossID string) { m.Called(address, tossID) }
func (m *MockChainWatcher) RemoveWallet(address string)       { m.Called(address) }
func (m *MockChainWatcher) OnTransaction(cb func(interfaces.TransactionEvent, entities.MonitoredWallet)) {
	m.Called(cb)
}
func (m *MockChainWatcher) Start(interval time.Duration) { m.Called(interval) }
func (m *MockChainWatcher) Stop()                        { m.Called() }

// MockEventPublisher is a mock implementation of interfaces.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event interfaces.TossEvent) error {
	return m.Called(event).Error(0)
}

// MockTxVerifier is a mock implementation of interfaces.TxVerifier.
type MockTxVerifier struct {
	mock.Mock
}

func (m *MockTxVerifier) Verify(ctx context.Context, hash string) (bool, error) {
	args := m.Called(ctx, hash)
	return args.Bool(0), args.Error(1)
}

// MockTossEngine is a mock implementation of interfaces.TossEngine.
type MockTossEngine struct {
	mock.Mock
}

func (m *MockTossEngine) Create(ctx context.Context, creator string, parsed interfaces.ParsedToss) (*entities.Toss, error) {
	args := m.Called(ctx, creator, parsed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Toss), args.Error(1)
}

func (m *MockTossEngine) AddParticipant(ctx context.Context, tossID, userID, option string, paid bool) (*entities.Toss, error) {
	args := m.Called(ctx, tossID, userID, option, paid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Toss), args.Error(1)
}

func (m *MockTossEngine) Close(ctx context.Context, tossID, caller, winningOption string) (*entities.Toss, error) {
	args := m.Called(ctx, tossID, caller, winningOption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Toss), args.Error(1)
}

func (m *MockTossEngine) ForceClose(ctx context.Context, tossID, caller string) (*entities.Toss, error) {
	args := m.Called(ctx, tossID, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Toss), args.Error(1)
}

func (m *MockTossEngine) Refresh(ctx context.Context, tossID string) (string, error) {
	args := m.Called(ctx, tossID)
	return args.String(0), args.Error(1)
}

func (m *MockTossEngine) Status(ctx context.Context, tossID string) (*entities.Toss, error) {
	args := m.Called(ctx, tossID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Toss), args.Error(1)
}

func (m *MockTossEngine) GetActiveForConv(ctx context.Context, conversationID string) (*entities.Toss, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Toss), args.Error(1)
}

func (m *MockTossEngine) GetByAddress(ctx context.Context, address string) (*entities.Toss, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Toss), args.Error(1)
}

func (m *MockTossEngine) OnTossEvent(handler func(interfaces.TossEvent)) {
	m.Called(handler)
}

// MockCorrelationLayer is a mock implementation of interfaces.CorrelationLayer.
type MockCorrelationLayer struct {
	mock.Mock
}

func (m *MockCorrelationLayer) Correlate(ctx context.Context, event interfaces.TransactionEvent, metadata interfaces.MetadataBag) interfaces.CorrelationResult {
	args := m.Called(ctx, event, metadata)
	return args.Get(0).(interfaces.CorrelationResult)
}

// MockTossParser is a mock implementation of interfaces.TossParser.
type MockTossParser struct {
	mock.Mock
}

func (m *MockTossParser) Parse(ctx context.Context, text string) (*interfaces.ParsedToss, *interfaces.ParseError) {
	args := m.Called(ctx, text)
	var parsed *interfaces.ParsedToss
	if args.Get(0) != nil {
		parsed = args.Get(0).(*interfaces.ParsedToss)
	}
	var parseErr *interfaces.ParseError
	if args.Get(1) != nil {
		parseErr = args.Get(1).(*interfaces.ParseError)
	}
	return parsed, parseErr
}
