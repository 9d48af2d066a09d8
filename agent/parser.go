package agent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"tossbot/domain/interfaces"
)

// heuristicParser is the reference TossParser: a small regex-driven
// stand-in for the out-of-scope LLM-backed natural-language parser. It
// recognizes a stake suffix ("... for 0.5") and an explicit two-option
// list ("... Lakers or Celtics"), defaulting to DefaultStake and
// DefaultOptions when either is absent.
type heuristicParser struct{}

// NewHeuristicParser constructs the reference TossParser.
func NewHeuristicParser() *heuristicParser {
	return &heuristicParser{}
}

var (
	stakePattern  = regexp.MustCompile(`(?i)for\s+([0-9]+(?:\.[0-9]+)?)\s*(?:stablecoin\s*units?)?\s*$`)
	optionPattern = regexp.MustCompile(`(?i)^(.*?)[:,]?\s+(\S+(?:\s\S+)?)\s+or\s+(\S+(?:\s\S+)?)\s*$`)
)

func (p *heuristicParser) Parse(ctx context.Context, text string) (*interfaces.ParsedToss, *interfaces.ParseError) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &interfaces.ParseError{Reason: "I need a topic to start a toss. Try: \"will it rain tomorrow, yes or no, for 0.5\""}
	}

	stake := DefaultStake
	if m := stakePattern.FindStringSubmatch(trimmed); m != nil {
		parsed, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, &interfaces.ParseError{Reason: "I couldn't read the stake amount."}
		}
		stake = parsed
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-len(m[0])])
	}

	options := DefaultOptions
	topic := trimmed
	if m := optionPattern.FindStringSubmatch(trimmed); m != nil {
		topic = strings.TrimSpace(m[1])
		options = [2]string{strings.TrimSpace(m[2]), strings.TrimSpace(m[3])}
	}

	if topic == "" {
		return nil, &interfaces.ParseError{Reason: "I need a topic to start a toss."}
	}
	if strings.EqualFold(options[0], options[1]) {
		return nil, &interfaces.ParseError{Reason: "The two options need to be different."}
	}

	return &interfaces.ParsedToss{Topic: topic, Options: options, Stake: stake}, nil
}
