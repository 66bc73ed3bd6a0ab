package conductor

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentguard/core"
)

// Response prefixes surfaced to agents for each rejected turn kind.
const (
	PrefixIntervention = "SYSTEM_INTERVENTION"
	PrefixBlock        = "SYSTEM_BLOCK"
	PrefixOverride     = "SYSTEM_OVERRIDE"
)

// Kind discriminates the outcome of a guarded turn.
type Kind int

const (
	// KindAccepted means the turn was appended to the history.
	KindAccepted Kind = iota
	// KindViolation means the turn broke a role or capability rule.
	KindViolation
	// KindLoop means the turn repeated recent content.
	KindLoop
	// KindOverride means the turn claimed completion without proof.
	KindOverride
)

func (k Kind) String() string {
	switch k {
	case KindAccepted:
		return "accepted"
	case KindViolation:
		return "violation"
	case KindLoop:
		return "loop"
	case KindOverride:
		return "override"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "accepted":
		*k = KindAccepted
	case "violation":
		*k = KindViolation
	case "loop":
		*k = KindLoop
	case "override":
		*k = KindOverride
	default:
		return fmt.Errorf("unknown result kind %q", text)
	}
	return nil
}

// Result is the outcome of one Step. Rejections are values, not errors: the
// session keeps running and the offending agent sees Response().
type Result struct {
	Kind    Kind      `json:"kind"`
	Agent   string    `json:"agent"`
	Role    core.Role `json:"role"`
	Content string    `json:"content"`
	Reason  string    `json:"reason,omitempty"`
	// Completion is set on the accepted turn that claimed, with proof, that
	// the task is done.
	Completion bool `json:"completion,omitempty"`
}

// Accepted reports whether the turn entered the history.
func (r Result) Accepted() bool { return r.Kind == KindAccepted }

// Response renders the string handed back to the session: the raw content for
// accepted turns, otherwise a prefixed intervention.
func (r Result) Response() string {
	switch r.Kind {
	case KindLoop:
		return PrefixIntervention + ": " + r.Reason + " Please rephrase or change strategy."
	case KindViolation:
		return PrefixBlock + ": " + r.Reason
	case KindOverride:
		return PrefixOverride + ": " + r.Reason
	default:
		return r.Content
	}
}

func (r Result) String() string { return r.Response() }
