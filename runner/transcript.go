package runner

import (
	"github.com/hupe1980/agentguard/auth"
	"github.com/hupe1980/agentguard/conductor"
	"github.com/hupe1980/agentguard/consensus"
)

// EntryKind classifies a transcript entry.
type EntryKind string

const (
	// EntryTurn is a guarded agent turn.
	EntryTurn EntryKind = "turn"
	// EntrySecurityAlert is a turn skipped because the agent's token failed.
	EntrySecurityAlert EntryKind = "security_alert"
	// EntryRatification is a council vote on a completion claim.
	EntryRatification EntryKind = "ratification"
)

// AlertPrefix starts every security alert response.
const AlertPrefix = auth.AlertPrefix

// StopReason says why a run ended.
type StopReason string

const (
	StopCompleted          StopReason = "completed"
	StopRatificationDenied StopReason = "ratification_denied"
	StopTurnLimit          StopReason = "turn_limit"
	StopTurnsExhausted     StopReason = "turns_exhausted"
	StopCanceled           StopReason = "canceled"
	StopGenerationFailed   StopReason = "generation_failed"
)

// Entry is one line of a transcript.
type Entry struct {
	Turn     int                      `json:"turn"`
	Kind     EntryKind                `json:"kind"`
	Agent    string                   `json:"agent"`
	Result   *conductor.Result        `json:"result,omitempty"`
	Decision *consensus.FinalDecision `json:"decision,omitempty"`
	Response string                   `json:"response"`
}

// Transcript records a run.
type Transcript struct {
	TaskID     string     `json:"task_id"`
	Entries    []Entry    `json:"entries"`
	Completed  bool       `json:"completed"`
	StopReason StopReason `json:"stop_reason"`
}

// Count returns how many turn entries had the given result kind.
func (t *Transcript) Count(kind conductor.Kind) int {
	n := 0
	for _, e := range t.Entries {
		if e.Kind == EntryTurn && e.Result != nil && e.Result.Kind == kind {
			n++
		}
	}
	return n
}

// Alerts returns how many security alerts were recorded.
func (t *Transcript) Alerts() int {
	n := 0
	for _, e := range t.Entries {
		if e.Kind == EntrySecurityAlert {
			n++
		}
	}
	return n
}

// Responses returns the response strings of all entries in order.
func (t *Transcript) Responses() []string {
	out := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Response
	}
	return out
}
