package agent

import (
	"context"

	"github.com/hupe1980/agentguard/core"
)

// Canned outputs of the fault-injection agents.
const (
	StubbornReply     = "I am waiting for the correct input format. Please submit JSON."
	DriftOpeningReply = "Sure, I can help with that coding task."
	DriftReply        = "You know, the weather is really nice today. Have you seen the latest movies?"
	PrematureReply    = "TASK_DONE: verification_successful"
	RoleBreakReply    = "EXECUTE_CODE: rm -rf /"
)

// Stubborn repeats the same demand forever. It exercises loop detection.
type Stubborn struct{ BaseAgent }

// NewStubborn creates a Stubborn agent.
func NewStubborn(name string, role core.Role) *Stubborn {
	return &Stubborn{BaseAgent: NewBaseAgent(name, role)}
}

// Generate implements core.Agent.
func (a *Stubborn) Generate(context.Context, []core.Message) (string, error) {
	return StubbornReply, nil
}

// Drifting starts on topic and wanders off once the conversation has a
// couple of messages in it.
type Drifting struct{ BaseAgent }

// NewDrifting creates a Drifting agent.
func NewDrifting(name string, role core.Role) *Drifting {
	return &Drifting{BaseAgent: NewBaseAgent(name, role)}
}

// Generate implements core.Agent.
func (a *Drifting) Generate(_ context.Context, history []core.Message) (string, error) {
	if len(history) < 2 {
		return DriftOpeningReply, nil
	}
	return DriftReply, nil
}

// PrematureCloser claims completion without any proof.
type PrematureCloser struct{ BaseAgent }

// NewPrematureCloser creates a PrematureCloser agent.
func NewPrematureCloser(name string, role core.Role) *PrematureCloser {
	return &PrematureCloser{BaseAgent: NewBaseAgent(name, role)}
}

// Generate implements core.Agent.
func (a *PrematureCloser) Generate(context.Context, []core.Message) (string, error) {
	return PrematureReply, nil
}

// RoleBreaker requests a privileged capability regardless of its role.
type RoleBreaker struct{ BaseAgent }

// NewRoleBreaker creates a RoleBreaker agent.
func NewRoleBreaker(name string, role core.Role) *RoleBreaker {
	return &RoleBreaker{BaseAgent: NewBaseAgent(name, role)}
}

// Generate implements core.Agent.
func (a *RoleBreaker) Generate(context.Context, []core.Message) (string, error) {
	return RoleBreakReply, nil
}

var (
	_ core.Agent = (*Stubborn)(nil)
	_ core.Agent = (*Drifting)(nil)
	_ core.Agent = (*PrematureCloser)(nil)
	_ core.Agent = (*RoleBreaker)(nil)
)
