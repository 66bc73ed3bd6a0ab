package testutil

import (
	"github.com/hupe1980/agentguard/core"
)

// TaskSpecBuilder provides a fluent helper for constructing task specs in tests.
// Example:
//
//	spec := NewTaskSpecBuilder("t1").Role("Coder", core.RolePrimary).MaxTurns(4).Build()
type TaskSpecBuilder struct {
	spec core.TaskSpec
}

// NewTaskSpecBuilder creates a builder for a spec with the given id.
func NewTaskSpecBuilder(id string) *TaskSpecBuilder {
	return &TaskSpecBuilder{spec: core.TaskSpec{ID: id, Roles: map[string]core.Role{}}}
}

// Goal sets the goal description (chainable).
func (b *TaskSpecBuilder) Goal(g string) *TaskSpecBuilder { b.spec.Goal = g; return b }

// Role assigns a role to an agent name (chainable).
func (b *TaskSpecBuilder) Role(agent string, r core.Role) *TaskSpecBuilder {
	b.spec.Roles[agent] = r
	return b
}

// StopCondition overrides the completion sentinel (chainable).
func (b *TaskSpecBuilder) StopCondition(s string) *TaskSpecBuilder {
	b.spec.StopCondition = s
	return b
}

// MaxTurns sets the turn limit (chainable).
func (b *TaskSpecBuilder) MaxTurns(n int) *TaskSpecBuilder { b.spec.MaxTurns = n; return b }

// Build returns the spec with defaults applied.
func (b *TaskSpecBuilder) Build() core.TaskSpec {
	return b.spec.Clone().WithDefaults()
}
