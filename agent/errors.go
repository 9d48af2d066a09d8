// Package agent marshals between the chat transport and the toss engine:
// inbound dispatch, command parsing, reply formatting and the wallet-send
// payment-intent payload.
package agent

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"tossbot/domain/entities"
)

// AgentError is a structured error with a user-facing message and an
// internal log message, generalized from the teacher's BotError: the
// transport-specific response helpers are replaced by a single Reply()
// method, since AgentFront posts through the transport-agnostic
// interfaces.Transport rather than a Discord session.
type AgentError struct {
	UserMessage string
	LogMessage  string
	Ephemeral   bool
	Err         error
	Context     interface{}
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.LogMessage, e.Err)
	}
	return e.LogMessage
}

func (e *AgentError) Unwrap() error { return e.Err }

// Reply is the text AgentFront should send back on this conversation.
func (e *AgentError) Reply() string {
	return "❌ " + e.UserMessage
}

// NewUserError wraps a user-caused issue (bad command, invalid option).
func NewUserError(userMessage, logMessage string) *AgentError {
	return &AgentError{UserMessage: userMessage, LogMessage: logMessage, Ephemeral: true}
}

// NewSystemError wraps an unexpected internal failure behind a generic
// user-facing message.
func NewSystemError(err error, logMessage string) *AgentError {
	return &AgentError{
		UserMessage: "Something went wrong. Please try again later.",
		LogMessage:  logMessage,
		Ephemeral:   true,
		Err:         err,
	}
}

// domainErrorMessage maps engine error sentinels to the user-facing copy
// dispatch should show, per the error handling design's propagation
// policy: user-visible kinds are reported, internal kinds are logged.
func domainErrorMessage(err error) string {
	switch {
	case errors.Is(err, entities.ErrAmountTooLarge):
		return fmt.Sprintf("Stake must be greater than zero and at most %.2f stablecoin units.", 10.0)
	case errors.Is(err, entities.ErrInvalidOption):
		return "That option isn't one of this toss's two choices."
	case errors.Is(err, entities.ErrDuplicateParticipant):
		return "You've already joined this toss."
	case errors.Is(err, entities.ErrUnpaid):
		return "I haven't seen your payment for this toss yet."
	case errors.Is(err, entities.ErrNotCreator):
		return "Only the toss creator can do that."
	case errors.Is(err, entities.ErrNotEnoughPlayers):
		return "This toss needs at least two participants before it can be closed."
	case errors.Is(err, entities.ErrActiveTossExists):
		return fmt.Sprintf("This group already has an active toss (%s). Close it before starting another.", activeTossSuffix(err))
	case errors.Is(err, entities.ErrNotFound):
		return "I couldn't find that toss."
	case errors.Is(err, entities.ErrBadState):
		return "That toss can't be changed right now."
	case errors.Is(err, entities.ErrUnresolvedOption):
		return "I couldn't tell which option your payment was for. Please resend your choice."
	case errors.Is(err, entities.ErrUnverifiedTx):
		return "I couldn't verify that transaction on-chain yet."
	case errors.Is(err, entities.ErrFailedTx):
		return "That transaction failed on-chain."
	case errors.Is(err, entities.ErrProviderUnavailable):
		return "The wallet provider is temporarily unavailable. Please try again shortly."
	default:
		return "Something went wrong. Please try again later."
	}
}

// activeTossSuffix pulls the "toss <id>" suffix off an ErrActiveTossExists
// error, which the engine wraps as "<sentinel>: toss <id>".
func activeTossSuffix(err error) string {
	const prefix = "conversation already has a non-terminal toss: "
	if msg := err.Error(); len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return "see status"
}

// HandleError logs a BotError-style error with its full context and
// returns the text that should be sent back on the conversation.
func HandleError(conversationID, senderID string, err error) string {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		log.WithFields(log.Fields{
			"conversationId": conversationID,
			"senderId":       senderID,
			"context":        agentErr.Context,
		}).WithError(agentErr.Err).Error(agentErr.LogMessage)
		return agentErr.Reply()
	}

	log.WithFields(log.Fields{
		"conversationId": conversationID,
		"senderId":       senderID,
	}).WithError(err).Error("unexpected error in agent dispatch")
	return "❌ " + domainErrorMessage(err)
}
