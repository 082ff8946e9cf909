package adblock

import (
	"github.com/traychrome/adblock/rules"
)

// Action is the decision made for a request.
type Action uint8

// Action values.
const (
	// ActionPass means that no rule matched and the request proceeds.
	ActionPass Action = iota

	// ActionAllow means that an allow rule matched and the request proceeds
	// regardless of the block rules.
	ActionAllow

	// ActionBlock means that a block rule matched and the request must be
	// answered with an empty response.
	ActionBlock
)

// String implements the fmt.Stringer interface for Action.
func (a Action) String() (s string) {
	switch a {
	case ActionPass:
		return "pass"
	case ActionAllow:
		return "allow"
	case ActionBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Result is the result of matching a request against the rules.
type Result struct {
	// Rule is the matching rule.  It is nil for ActionPass.
	Rule *rules.Rule

	// Domain is the eTLD+1 of the request.  It is empty if the request URI
	// could not be parsed.
	Domain string

	// Action is the decision for the request.
	Action Action
}

// Blocked returns true if the request must be blocked.
func (r Result) Blocked() (ok bool) {
	return r.Action == ActionBlock
}

// RuleText returns the text of the matching rule or an empty string.
func (r Result) RuleText() (s string) {
	if r.Rule == nil {
		return ""
	}

	return r.Rule.Text()
}
