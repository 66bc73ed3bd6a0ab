package hierarchy

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentguard/core"
)

// DefaultEscalationTerm makes a KeywordWorker escalate when no terms are given.
const DefaultEscalationTerm = "hard"

// EscalationMarker is the token an agent-backed worker emits to give up.
const EscalationMarker = "ESCALATE"

// Worker executes delegated tasks. Returning an error wrapping ErrEscalated
// hands the task back to the supervisor.
type Worker interface {
	Name() string
	Execute(ctx context.Context, task Task) (string, error)
}

// FuncWorker adapts a function to Worker.
type FuncWorker struct {
	name string
	fn   func(ctx context.Context, task Task) (string, error)
}

// NewFuncWorker creates a FuncWorker.
func NewFuncWorker(name string, fn func(ctx context.Context, task Task) (string, error)) *FuncWorker {
	return &FuncWorker{name: name, fn: fn}
}

// Name implements Worker.
func (w *FuncWorker) Name() string { return w.name }

// Execute implements Worker.
func (w *FuncWorker) Execute(ctx context.Context, task Task) (string, error) {
	return w.fn(ctx, task)
}

// KeywordWorker completes every task except those mentioning one of its
// escalation terms, which it escalates. Matching ignores case.
type KeywordWorker struct {
	name  string
	terms []string
}

// NewKeywordWorker creates a KeywordWorker. Without terms it escalates on
// DefaultEscalationTerm.
func NewKeywordWorker(name string, escalateOn ...string) *KeywordWorker {
	if len(escalateOn) == 0 {
		escalateOn = []string{DefaultEscalationTerm}
	}
	terms := make([]string, 0, len(escalateOn))
	for _, t := range escalateOn {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}
	return &KeywordWorker{name: name, terms: terms}
}

// Name implements Worker.
func (w *KeywordWorker) Name() string { return w.name }

// Execute implements Worker.
func (w *KeywordWorker) Execute(ctx context.Context, task Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content := strings.ToLower(task.Content)
	for _, t := range w.terms {
		if strings.Contains(content, t) {
			return "", fmt.Errorf("%w: %s: task too %s", ErrEscalated, w.name, t)
		}
	}
	return fmt.Sprintf("%s: Completed '%s'.", w.name, task.Content), nil
}

// AgentWorker runs tasks through a core.Agent. The agent sees the task as a
// single supervisor message; a reply containing EscalationMarker escalates.
type AgentWorker struct {
	agent core.Agent
}

// NewAgentWorker wraps a.
func NewAgentWorker(a core.Agent) *AgentWorker {
	return &AgentWorker{agent: a}
}

// Name implements Worker.
func (w *AgentWorker) Name() string { return w.agent.Name() }

// Execute implements Worker.
func (w *AgentWorker) Execute(ctx context.Context, task Task) (string, error) {
	prompt := []core.Message{core.NewMessage(SupervisorName, core.RolePrimary, task.Content)}

	reply, err := w.agent.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.Contains(reply, EscalationMarker) {
		return "", fmt.Errorf("%w: %s", ErrEscalated, strings.TrimSpace(reply))
	}
	return reply, nil
}
