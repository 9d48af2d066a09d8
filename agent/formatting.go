package agent

import (
	"fmt"
	"strings"

	"tossbot/domain/entities"
)

// FormatStake formats a stablecoin amount to two decimal places, adapted
// from the teacher's thousand-separated balance formatter but scaled for
// this domain's fractional stablecoin units rather than integer bit
// balances.
func FormatStake(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// FormatCompact renders large stablecoin balances in k/M/B suffix form,
// the same scaling ladder the teacher's FormatBalanceCompact uses.
func FormatCompact(amount float64) string {
	switch {
	case amount < 1_000:
		return FormatStake(amount)
	case amount < 1_000_000:
		return fmt.Sprintf("%.1fk", amount/1_000)
	case amount < 1_000_000_000:
		return fmt.Sprintf("%.1fM", amount/1_000_000)
	default:
		return fmt.Sprintf("%.1fB", amount/1_000_000_000)
	}
}

// FormatTossSummary renders a one-line human-readable summary of a toss,
// used by the status and join replies.
func FormatTossSummary(t *entities.Toss) string {
	return fmt.Sprintf("**%s** — %s vs %s — stake %s — %d participant(s) — %s",
		t.Topic, t.Options[0], t.Options[1], FormatStake(t.Stake), len(t.Participants), t.Status)
}

// FormatCloseResult renders the outcome of a Close or ForceClose call.
func FormatCloseResult(t *entities.Toss) string {
	if t.Result == entities.ResultForceClosed {
		msg := fmt.Sprintf("🔁 Toss **%s** was force-closed and refunded.", t.Topic)
		if len(t.FailedRefunds) > 0 {
			msg += fmt.Sprintf(" (%d refund(s) failed and need manual review: %s)",
				len(t.FailedRefunds), strings.Join(t.FailedRefunds, ", "))
		}
		return msg
	}

	msg := fmt.Sprintf("🎉 Toss **%s** closed. Winning option: **%s**.", t.Topic, t.Result)
	if len(t.WinnersFor(t.Result)) == 0 {
		msg += " No winners to pay out."
	}
	if len(t.FailedWinners) > 0 {
		msg += fmt.Sprintf(" (%d payout(s) failed and need manual review: %s)",
			len(t.FailedWinners), strings.Join(t.FailedWinners, ", "))
	}
	return msg
}

// FormatHelp is the reply to the `help` subcommand.
func FormatHelp(prefix string) string {
	return strings.Join([]string{
		fmt.Sprintf("**%s** commands:", prefix),
		fmt.Sprintf("`%s help` — show this message", prefix),
		fmt.Sprintf("`%s status` — show the active toss for this channel", prefix),
		fmt.Sprintf("`%s join` — resend payment buttons for the active toss", prefix),
		fmt.Sprintf("`%s close [option]` — declare a winner and pay out; with no option, cancel and refund everyone", prefix),
		fmt.Sprintf("`%s refresh` — reconcile escrow balance with recorded participants", prefix),
		fmt.Sprintf("`%s balance` — check your stablecoin balance (DM only)", prefix),
		fmt.Sprintf("`%s monitor` — confirm the chain watcher is running (DM only); addresses are not listed", prefix),
		"or just describe a wager in plain text to start a new toss.",
	}, "\n")
}
