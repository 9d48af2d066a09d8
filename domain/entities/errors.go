package entities

import "errors"

// Sentinel errors returned by the engine, the correlation layer and the
// wallet provider. AgentFront maps each of these to a user-facing reply;
// anything else is an internal error that only gets logged.
var (
	ErrNotFound             = errors.New("not found")
	ErrBadState             = errors.New("toss is not in a state that allows this operation")
	ErrDuplicateParticipant = errors.New("user already joined this toss")
	ErrInvalidOption        = errors.New("option is not one of the toss's two options")
	ErrUnpaid               = errors.New("participant has not paid")
	ErrNotCreator           = errors.New("only the creator may perform this action")
	ErrNotEnoughPlayers     = errors.New("at least two participants are required to close")
	ErrAmountTooLarge       = errors.New("amount exceeds the maximum stake")
	ErrActiveTossExists     = errors.New("conversation already has a non-terminal toss")

	ErrUnresolvedOption = errors.New("could not determine which option this payment was for")
	ErrUnverifiedTx     = errors.New("transaction could not be verified in time")
	ErrFailedTx         = errors.New("transaction did not succeed on-chain")

	ErrProviderUnavailable = errors.New("wallet provider is unavailable")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAddress      = errors.New("invalid address")

	ErrTransportError = errors.New("message delivery failed")
)
