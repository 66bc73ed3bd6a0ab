package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentguard/core"
)

// BaseAgent bundles identity shared by all agents. Embed it and supply a
// Generate method to satisfy core.Agent.
type BaseAgent struct {
	name        string
	role        core.Role
	mu          sync.RWMutex
	description string
}

// NewBaseAgent constructs a BaseAgent with a generated description.
func NewBaseAgent(name string, role core.Role) BaseAgent {
	return BaseAgent{
		name:        name,
		role:        role,
		description: fmt.Sprintf("Agent %s (%s)", name, role),
	}
}

// Name returns the agent name used as message source.
func (b *BaseAgent) Name() string { return b.name }

// Role returns the role the agent declares on every message.
func (b *BaseAgent) Role() core.Role { return b.role }

// Description returns a human-readable description.
func (b *BaseAgent) Description() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.description
}

// SetDescription updates the description.
func (b *BaseAgent) SetDescription(desc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.description = desc
}

// GenerateFunc produces the next utterance from the conversation so far.
type GenerateFunc func(ctx context.Context, history []core.Message) (string, error)

// FuncAgent adapts a plain function to core.Agent.
type FuncAgent struct {
	BaseAgent
	fn GenerateFunc
}

// NewFuncAgent creates a FuncAgent.
func NewFuncAgent(name string, role core.Role, fn GenerateFunc) *FuncAgent {
	return &FuncAgent{BaseAgent: NewBaseAgent(name, role), fn: fn}
}

// Generate implements core.Agent.
func (a *FuncAgent) Generate(ctx context.Context, history []core.Message) (string, error) {
	return a.fn(ctx, history)
}

// ScriptedAgent replays canned replies in order, wrapping around at the end.
type ScriptedAgent struct {
	BaseAgent
	mu      sync.Mutex
	replies []string
	next    int
}

// NewScriptedAgent creates a ScriptedAgent. It panics without replies.
func NewScriptedAgent(name string, role core.Role, replies ...string) *ScriptedAgent {
	if len(replies) == 0 {
		panic("agent: scripted agent needs at least one reply")
	}
	return &ScriptedAgent{BaseAgent: NewBaseAgent(name, role), replies: replies}
}

// Generate implements core.Agent.
func (a *ScriptedAgent) Generate(ctx context.Context, _ []core.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	r := a.replies[a.next%len(a.replies)]
	a.next++
	return r, nil
}

// Calls returns how many replies have been produced.
func (a *ScriptedAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

var (
	_ core.Agent = (*FuncAgent)(nil)
	_ core.Agent = (*ScriptedAgent)(nil)
)
