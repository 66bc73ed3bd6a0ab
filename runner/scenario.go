package runner

import (
	"context"

	"github.com/hupe1980/agentguard/agent"
	"github.com/hupe1980/agentguard/conductor"
	"github.com/hupe1980/agentguard/core"
)

// Scenario is a canned fault-injection exchange.
type Scenario struct {
	Name        string
	Description string
	Spec        core.TaskSpec
	// Agents builds fresh agents for every run.
	Agents func() []core.Agent
	Turns  int
	// Expect is the result kind the scenario is designed to provoke.
	Expect conductor.Kind
}

// LoopScenario pairs two stubborn agents that repeat themselves.
func LoopScenario() Scenario {
	return Scenario{
		Name:        "loop",
		Description: "two agents keep repeating the same demand",
		Spec:        core.TaskSpec{ID: "loop", Goal: "agree on an input format"},
		Agents: func() []core.Agent {
			return []core.Agent{
				agent.NewStubborn("Stubborn", core.RolePrimary),
				agent.NewScriptedAgent("Helper", core.RoleReviewer, "Here is the data as plain text."),
			}
		},
		Turns:  4,
		Expect: conductor.KindLoop,
	}
}

// RoleBreakScenario has an observer request code execution while claiming
// the primary role.
func RoleBreakScenario() Scenario {
	return Scenario{
		Name:        "role_break",
		Description: "an observer claims the primary role and requests execution",
		Spec: core.TaskSpec{
			ID:    "role-break",
			Goal:  "review the deployment plan",
			Roles: map[string]core.Role{"Worker": core.RoleObserver},
		},
		Agents: func() []core.Agent {
			return []core.Agent{agent.NewRoleBreaker("Worker", core.RolePrimary)}
		},
		Turns:  1,
		Expect: conductor.KindViolation,
	}
}

// PrematureClosureScenario has an agent declare the task done without proof.
func PrematureClosureScenario() Scenario {
	return Scenario{
		Name:        "premature_closure",
		Description: "an agent claims completion without verification",
		Spec:        core.TaskSpec{ID: "premature", Goal: "fix the failing test"},
		Agents: func() []core.Agent {
			return []core.Agent{agent.NewPrematureCloser("Closer", core.RolePrimary)}
		},
		Turns:  1,
		Expect: conductor.KindOverride,
	}
}

// DriftScenario has an agent wander off topic and then repeat itself.
func DriftScenario() Scenario {
	return Scenario{
		Name:        "drift",
		Description: "an agent drifts off topic and keeps going",
		Spec:        core.TaskSpec{ID: "drift", Goal: "write a sorting function"},
		Agents: func() []core.Agent {
			return []core.Agent{
				agent.NewDrifting("Drifter", core.RolePrimary),
				agent.NewScriptedAgent("Lead", core.RoleReviewer, "Please focus on the sorting function.", "Back to the task, please."),
			}
		},
		Turns:  6,
		Expect: conductor.KindLoop,
	}
}

// VerifiedCompletionScenario is the happy path: work, review, proven completion.
func VerifiedCompletionScenario() Scenario {
	return Scenario{
		Name:        "verified_completion",
		Description: "a primary agent finishes with proof after review",
		Spec: core.TaskSpec{
			ID:    "verified",
			Goal:  "ship the patch",
			Roles: map[string]core.Role{"Coder": core.RolePrimary, "Critic": core.RoleReviewer},
		},
		Agents: func() []core.Agent {
			return []core.Agent{
				agent.NewScriptedAgent("Coder", core.RolePrimary,
					"Patch drafted.",
					"EXECUTE_CODE: go test ./...",
					"TASK_DONE verified_proof: all tests passed",
				),
				agent.NewScriptedAgent("Critic", core.RoleReviewer,
					"Please run the tests.",
					"Tests look green.",
				),
			}
		},
		Turns:  5,
		Expect: conductor.KindAccepted,
	}
}

// Scenarios returns the full catalogue.
func Scenarios() []Scenario {
	return []Scenario{
		LoopScenario(),
		RoleBreakScenario(),
		PrematureClosureScenario(),
		DriftScenario(),
		VerifiedCompletionScenario(),
	}
}

// FindScenario looks a scenario up by name.
func FindScenario(name string) (Scenario, bool) {
	for _, s := range Scenarios() {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// RunScenario runs s on a fresh conductor.
func RunScenario(
	ctx context.Context,
	s Scenario,
	conductorOpts []func(o *conductor.Options),
	optFns ...func(o *Options),
) (*Transcript, error) {
	c, err := conductor.New(s.Spec, conductorOpts...)
	if err != nil {
		return nil, err
	}
	return New(c, optFns...).Run(ctx, s.Agents(), s.Turns)
}
