// Package interfaces defines the ports between the toss domain's core and
// its external collaborators: persistence, the custodial wallet provider,
// the chain, and the chat transport. Implementations live in sibling
// packages (store, wallet, chainwatcher, agent); nothing in domain/
// imports any of them.
package interfaces

import (
	"context"
	"strings"
	"time"

	"tossbot/domain/entities"
)

// Store is a key/value persistence capability over two namespaces
// (tosses, wallets) plus an address-to-wallet reverse index. Concurrent
// callers are serialized by the engine's per-toss locking; Store itself
// need not be transactional across records.
type Store interface {
	PutToss(ctx context.Context, toss *entities.Toss) error
	GetToss(ctx context.Context, id string) (*entities.Toss, error)
	DeleteToss(ctx context.Context, id string) error
	ListTosses(ctx context.Context) ([]*entities.Toss, error)

	PutWallet(ctx context.Context, wallet *entities.Wallet) error
	GetWallet(ctx context.Context, userID string) (*entities.Wallet, error)
	FindWalletByAddress(ctx context.Context, address string) (*entities.Wallet, error)
}

// WalletProvider is the opaque custodial wallet capability. The engine
// always passes the owning toss's id as userId.
type WalletProvider interface {
	Create(ctx context.Context, userID string) (*entities.Wallet, error)
	Load(ctx context.Context, userID string) (*entities.Wallet, error)
	Balance(ctx context.Context, userID string) (float64, error)
	Transfer(ctx context.Context, fromUserID, toAddress string, amount float64) (TransferResult, error)
}

// TransferResult is the evidence of a submitted transfer; the engine treats
// a non-empty Hash as its sole proof of success.
type TransferResult struct {
	Hash string
	Link string
}

// AmountCodec encodes/decodes the remainder-tagged option index described
// in the correlation layer's wire-format trick.
type AmountCodec interface {
	Encode(optionIndex int, stake float64) int64
	Decode(minorUnits int64) (optionIndex int, ok bool)
}

// TransactionEvent is a verified (or verifiable) on-chain stablecoin
// transfer, whether it arrived via a transaction-reference chat message or
// via the ChainWatcher's own polling.
type TransactionEvent struct {
	Hash  string
	From  string
	To    string
	Value int64 // minor units
}

// MetadataBag is a flat mapping from string keys to string values,
// populated at ingress from a small, enumerated set of known transport
// payload paths. It replaces the reflective "walk any nested object for a
// key that case-folds to option|selectedOption|choice" pattern with a
// typed lookup.
type MetadataBag map[string]string

// Option looks up the first key (case-insensitively) among "option",
// "selectedoption" and "choice".
func (b MetadataBag) Option() (string, bool) {
	for _, key := range []string{"option", "selectedoption", "choice"} {
		for k, v := range b {
			if strings.EqualFold(k, key) && v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// CorrelationResult is the outcome of CorrelationLayer.Correlate: either a
// resolved (toss, option, sender) tuple, or a structured unresolved reason.
type CorrelationResult struct {
	TossID   string
	Option   string
	SenderID string

	Unresolved bool
	Reason     error
}

// TxVerifier checks a transaction hash against the chain and reports
// whether it succeeded. Implementations apply their own retry policy.
type TxVerifier interface {
	Verify(ctx context.Context, hash string) (success bool, err error)
}

// CorrelationLayer maps a verified transfer, plus any metadata recovered
// from the transport message, to a (toss, option, sender) tuple.
type CorrelationLayer interface {
	Correlate(ctx context.Context, event TransactionEvent, metadata MetadataBag) CorrelationResult
}

// ChainWatcher polls an EVM chain for stablecoin Transfer events landing on
// monitored escrow addresses, with per-wallet checkpointing and
// at-least-once delivery.
type ChainWatcher interface {
	AddWallet(address, tossID string)
	RemoveWallet(address string)
	OnTransaction(cb func(event TransactionEvent, w entities.MonitoredWallet))
	Start(interval time.Duration)
	Stop()
}

// TossEngine implements the per-toss state machine.
type TossEngine interface {
	Create(ctx context.Context, creator string, parsed ParsedToss) (*entities.Toss, error)
	AddParticipant(ctx context.Context, tossID, userID, option string, paid bool) (*entities.Toss, error)
	Close(ctx context.Context, tossID, caller, winningOption string) (*entities.Toss, error)
	ForceClose(ctx context.Context, tossID, caller string) (*entities.Toss, error)
	Refresh(ctx context.Context, tossID string) (string, error)

	Status(ctx context.Context, tossID string) (*entities.Toss, error)
	GetActiveForConv(ctx context.Context, conversationID string) (*entities.Toss, error)
	GetByAddress(ctx context.Context, address string) (*entities.Toss, error)

	OnTossEvent(handler func(TossEvent))
}

// ParsedToss is the structured output of the out-of-scope natural-language
// parser, or the direct input to Create when a caller already has the
// pieces (e.g. a test, or a future typed command).
type ParsedToss struct {
	Topic          string
	Options        [2]string
	Stake          float64
	ConversationID string
}

// TossParser turns free text into a ParsedToss or a structured ParseError.
// This is the out-of-scope natural-language parser boundary; the reference
// implementation is a heuristic stand-in, not an LLM client.
type TossParser interface {
	Parse(ctx context.Context, text string) (*ParsedToss, *ParseError)
}

// ParseError is a structured reason a free-text prompt could not be parsed
// into a toss, replacing the source's "return an error message string"
// control flow with a typed sum-type member.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return e.Reason }

// TossEventType enumerates the engine's lifecycle notifications.
type TossEventType string

const (
	EventCreated         TossEventType = "created"
	EventParticipantAdded TossEventType = "participant_added"
	EventClosed           TossEventType = "closed"
	EventForceClosed      TossEventType = "force_closed"
	EventRefreshed        TossEventType = "refreshed"
)

// TossEvent is published by the engine after every committed transition.
type TossEvent struct {
	Type TossEventType
	Toss *entities.Toss
}

// EventPublisher fans TossEvents out to in-process subscribers and,
// optionally, to other processes over a message bus.
type EventPublisher interface {
	Publish(event TossEvent) error
}

// Transport is the secure-messaging boundary: out-of-scope transport and
// content-type codecs, specified only at this interface.
type Transport interface {
	Send(ctx context.Context, conversationID string, msg OutboundMessage) error
}

// OutboundMessage is one of the transport's content types.
type OutboundMessage struct {
	ContentType OutboundContentType
	Text        string
	WalletSendCalls *WalletSendCalls
	TxReference     *TxReference
}

type OutboundContentType string

const (
	ContentText            OutboundContentType = "text"
	ContentWalletSendCalls OutboundContentType = "wallet-send-calls"
	ContentTxReference     OutboundContentType = "transaction-reference"
)

// WalletSendCalls is the payment-intent button payload.
type WalletSendCalls struct {
	Version  string
	From     string
	ChainID  int64
	Calls    []WalletCall
}

type WalletCall struct {
	To       string
	Data     string
	Metadata map[string]string
}

// TxReference is the transaction-confirmation payload.
type TxReference struct {
	NetworkID string
	Reference string
}

// InboundMessage is what AgentFront receives from the transport.
type InboundMessage struct {
	ConversationID string
	SenderID       string
	IsDM           bool
	ContentType    InboundContentType
	Text           string
	TxHash         string
	Metadata       MetadataBag
}

type InboundContentType string

const (
	InboundText           InboundContentType = "text"
	InboundTxReference    InboundContentType = "transaction-reference"
)
