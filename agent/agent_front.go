package agent

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"tossbot/config"
	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
	"tossbot/domain/services"
)

// erc20TransferCalldataSelector is the first four bytes of
// keccak256("transfer(address,uint256)"); see wallet.erc20TransferSelector
// for the same constant used when the custodial wallet itself submits a
// transfer rather than merely encoding one for a payment-intent button.
const erc20TransferCalldataSelector = "a9059cbb"

var (
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	transferArgs   = abi.Arguments{{Type: addressType}, {Type: uint256Type}}
)

// agentFront marshals between the chat transport and the engine. It is
// stateless except for the references it holds to its collaborators,
// matching the component design's "stateless except for held references"
// shape.
type agentFront struct {
	transport    interfaces.Transport
	engine       interfaces.TossEngine
	correlation  interfaces.CorrelationLayer
	wallets      interfaces.WalletProvider
	watcher      interfaces.ChainWatcher
	parser       interfaces.TossParser

	commandPrefix string
	stablecoin    string
	chainID       int64
}

// NewAgentFront constructs the dispatcher and subscribes to the engine's
// lifecycle events, matching the teacher's eventPublisher subscriber
// registration style: AgentFront never holds a back-reference given to it
// by the engine, it registers its own handler instead.
func NewAgentFront(
	transport interfaces.Transport,
	engine interfaces.TossEngine,
	correlation interfaces.CorrelationLayer,
	wallets interfaces.WalletProvider,
	watcher interfaces.ChainWatcher,
	parser interfaces.TossParser,
) *agentFront {
	cfg := config.Get()
	f := &agentFront{
		transport:     transport,
		engine:        engine,
		correlation:   correlation,
		wallets:       wallets,
		watcher:       watcher,
		parser:        parser,
		commandPrefix: cfg.CommandPrefix,
		stablecoin:    cfg.StablecoinAddress,
		chainID:       cfg.ChainID,
	}
	engine.OnTossEvent(f.handleTossEvent)
	return f
}

// HandleInbound is the transport's single entry point for an arriving
// message.
func (f *agentFront) HandleInbound(ctx context.Context, msg interfaces.InboundMessage) {
	if msg.ContentType == interfaces.InboundTxReference {
		f.handleTxReference(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if prefix, rest, ok := cutPrefix(text, f.commandPrefix); ok {
		f.handleCommand(ctx, msg, prefix, rest)
		return
	}

	f.handleFreeText(ctx, msg)
}

// cutPrefix reports whether text begins with prefix (case-insensitively)
// followed by whitespace or end-of-string, returning the matched prefix
// and the remaining text.
func cutPrefix(text, prefix string) (string, string, bool) {
	if len(text) < len(prefix) || !strings.EqualFold(text[:len(prefix)], prefix) {
		return "", "", false
	}
	if len(text) > len(prefix) && !strings.ContainsRune(" \t\r\n", rune(text[len(prefix)])) {
		return "", "", false
	}
	rest := strings.TrimSpace(text[len(prefix):])
	return prefix, rest, true
}

func (f *agentFront) handleTxReference(ctx context.Context, msg interfaces.InboundMessage) {
	event := interfaces.TransactionEvent{Hash: msg.TxHash}
	result := f.correlation.Correlate(ctx, event, msg.Metadata)
	if result.Unresolved {
		log.WithFields(log.Fields{
			"conversationId": msg.ConversationID,
			"txHash":         msg.TxHash,
		}).WithError(result.Reason).Warn("transaction reference did not correlate to a toss")
		return
	}

	toss, err := f.engine.AddParticipant(ctx, result.TossID, result.SenderID, result.Option, true)
	if err != nil {
		f.reply(ctx, msg.ConversationID, HandleError(msg.ConversationID, result.SenderID, err))
		return
	}
	f.reply(ctx, msg.ConversationID, fmt.Sprintf("✅ %s joined on **%s**.\n%s", result.SenderID, result.Option, FormatTossSummary(toss)))
}

func (f *agentFront) handleCommand(ctx context.Context, msg interfaces.InboundMessage, prefix, rest string) {
	fields := strings.Fields(rest)
	var sub, args string
	if len(fields) > 0 {
		sub = strings.ToLower(fields[0])
		args = strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
	}

	if !knownSubcommands[sub] {
		f.handleFreeText(ctx, msg)
		return
	}

	switch sub {
	case "help":
		f.reply(ctx, msg.ConversationID, FormatHelp(f.commandPrefix))

	case "balance":
		if !msg.IsDM {
			f.reply(ctx, msg.ConversationID, "Check your balance in a DM with me.")
			return
		}
		f.handleBalance(ctx, msg)

	case "monitor":
		if !msg.IsDM {
			f.reply(ctx, msg.ConversationID, "Watcher status is only available in a DM.")
			return
		}
		f.reply(ctx, msg.ConversationID, "Watcher is running.")

	case "status":
		f.withActiveToss(ctx, msg, func(toss *entities.Toss) {
			f.reply(ctx, msg.ConversationID, FormatTossSummary(toss))
		})

	case "join":
		f.withActiveToss(ctx, msg, func(toss *entities.Toss) {
			f.sendPaymentButtons(ctx, msg.ConversationID, toss)
		})

	case "refresh":
		f.withActiveToss(ctx, msg, func(toss *entities.Toss) {
			note, err := f.engine.Refresh(ctx, toss.ID)
			if err != nil {
				f.reply(ctx, msg.ConversationID, HandleError(msg.ConversationID, msg.SenderID, err))
				return
			}
			if note == "" {
				note = "No new escrow activity found."
			}
			f.reply(ctx, msg.ConversationID, note)
		})

	case "close":
		f.withActiveToss(ctx, msg, func(toss *entities.Toss) {
			f.handleClose(ctx, msg, toss, args)
		})
	}
}

// withActiveToss applies the join/close/status/refresh command-surface
// rule: these commands require a group conversation with an active toss.
// isDM(conv) and hasActiveToss(conv) are evaluated independently, per the
// design note forbidding a single combined guard.
func (f *agentFront) withActiveToss(ctx context.Context, msg interfaces.InboundMessage, fn func(*entities.Toss)) {
	if msg.IsDM {
		f.reply(ctx, msg.ConversationID, "That command only works in a group.")
		return
	}
	toss, err := f.engine.GetActiveForConv(ctx, msg.ConversationID)
	if err != nil {
		f.reply(ctx, msg.ConversationID, "There's no active toss in this conversation.")
		return
	}
	fn(toss)
}

func (f *agentFront) handleBalance(ctx context.Context, msg interfaces.InboundMessage) {
	balance, err := f.wallets.Balance(ctx, msg.SenderID)
	if err != nil {
		f.reply(ctx, msg.ConversationID, HandleError(msg.ConversationID, msg.SenderID, err))
		return
	}
	f.reply(ctx, msg.ConversationID, fmt.Sprintf("Your balance: %s stablecoin units.", FormatStake(balance)))
}

func (f *agentFront) handleClose(ctx context.Context, msg interfaces.InboundMessage, toss *entities.Toss, winningOption string) {
	winningOption = strings.TrimSpace(winningOption)
	if winningOption == "" {
		cancelled, err := f.engine.ForceClose(ctx, toss.ID, msg.SenderID)
		if err != nil {
			f.reply(ctx, msg.ConversationID, HandleError(msg.ConversationID, msg.SenderID, err))
			return
		}
		f.reply(ctx, msg.ConversationID, FormatCloseResult(cancelled))
		return
	}

	closed, err := f.engine.Close(ctx, toss.ID, msg.SenderID, winningOption)
	if err != nil {
		f.reply(ctx, msg.ConversationID, HandleError(msg.ConversationID, msg.SenderID, err))
		return
	}
	f.reply(ctx, msg.ConversationID, FormatCloseResult(closed))
}

func (f *agentFront) handleFreeText(ctx context.Context, msg interfaces.InboundMessage) {
	if msg.IsDM {
		f.reply(ctx, msg.ConversationID, "Tosses can only be created in a group.")
		return
	}

	parsed, parseErr := f.parser.Parse(ctx, msg.Text)
	if parseErr != nil {
		f.reply(ctx, msg.ConversationID, "❌ "+parseErr.Reason)
		return
	}
	parsed.ConversationID = msg.ConversationID

	toss, err := f.engine.Create(ctx, msg.SenderID, *parsed)
	if err != nil {
		f.reply(ctx, msg.ConversationID, HandleError(msg.ConversationID, msg.SenderID, err))
		return
	}

	f.watcher.AddWallet(toss.WalletAddress, toss.ID)
	f.reply(ctx, msg.ConversationID, fmt.Sprintf("🎲 New toss: **%s**\n%s", toss.Topic, FormatTossSummary(toss)))
	f.sendPaymentButtons(ctx, msg.ConversationID, toss)
}

// sendPaymentButtons emits one wallet-send-calls payment-intent message per
// option, each call's amount carrying the remainder-tagged minor-unit
// encoding so a sender's option survives even if metadata is stripped by
// an intermediate wallet.
func (f *agentFront) sendPaymentButtons(ctx context.Context, conversationID string, toss *entities.Toss) {
	calls := make([]interfaces.WalletCall, 0, len(toss.Options))
	for i, option := range toss.Options {
		minorUnits := services.NewAmountCodec().Encode(i, toss.Stake)
		data, err := encodeOptionTransferCalldata(toss.WalletAddress, minorUnits)
		if err != nil {
			log.WithError(err).Error("failed to encode payment-intent calldata")
			continue
		}
		calls = append(calls, interfaces.WalletCall{
			To:       f.stablecoin,
			Data:     data,
			Metadata: map[string]string{"option": option},
		})
	}

	// From is left blank: the signer is whichever wallet the recipient
	// connects when tapping the button, not known at send time.
	_ = f.transport.Send(ctx, conversationID, interfaces.OutboundMessage{
		ContentType: interfaces.ContentWalletSendCalls,
		WalletSendCalls: &interfaces.WalletSendCalls{
			Version: "1.0",
			ChainID: f.chainID,
			Calls:   calls,
		},
	})
}

func encodeOptionTransferCalldata(escrowAddress string, minorUnits int64) (string, error) {
	packed, err := transferArgs.Pack(common.HexToAddress(escrowAddress), big.NewInt(minorUnits))
	if err != nil {
		return "", err
	}
	return "0x" + erc20TransferCalldataSelector + fmt.Sprintf("%x", packed), nil
}

func (f *agentFront) handleTossEvent(event interfaces.TossEvent) {
	ctx := context.Background()
	switch event.Type {
	case interfaces.EventRefreshed:
		f.reply(ctx, event.Toss.ConversationID, fmt.Sprintf("Escrow reconciled: %s", FormatTossSummary(event.Toss)))
	case interfaces.EventClosed, interfaces.EventForceClosed:
		f.reply(ctx, event.Toss.ConversationID, FormatCloseResult(event.Toss))
	}
}

func (f *agentFront) reply(ctx context.Context, conversationID, text string) {
	if err := f.transport.Send(ctx, conversationID, interfaces.OutboundMessage{ContentType: interfaces.ContentText, Text: text}); err != nil {
		log.WithField("conversationId", conversationID).WithError(err).Error("failed to send reply")
	}
}
