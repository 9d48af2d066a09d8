package agent

import "tossbot/domain/services"

// DefaultCommandPrefix is the command prefix text commands must begin
// with unless overridden by configuration.
const DefaultCommandPrefix = "@toss"

// MaxStake and DefaultStake mirror the engine's validation limits. The
// reference parser starts from DefaultStake; AgentFront does not check
// stakes itself and leaves that to the engine's Create.
const (
	MaxStake     = services.MaxStake
	DefaultStake = services.DefaultStake
)

// DefaultOptions is used by the reference parser when a free-text prompt
// names no explicit two-option list.
var DefaultOptions = [2]string{"yes", "no"}

// knownSubcommands is the allowed-commands whitelist dispatch checks
// against before falling through to free-text toss creation.
var knownSubcommands = map[string]bool{
	"help":    true,
	"status":  true,
	"join":    true,
	"close":   true,
	"balance": true,
	"refresh": true,
	"monitor": true,
}
