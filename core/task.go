package core

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTaskSpec is returned when a task spec fails validation.
var ErrInvalidTaskSpec = errors.New("invalid task spec")

const (
	// DefaultStopCondition is the sentinel an agent emits to claim completion.
	DefaultStopCondition = "TASK_DONE"
	// DefaultMaxTurns bounds a session when the spec leaves MaxTurns unset.
	DefaultMaxTurns = 10
)

// TaskSpec configures a session: which role each agent is expected to hold,
// what the goal is, and which sentinel marks a completion claim. A conductor
// keeps its own copy, so the spec is immutable for the session's lifetime.
type TaskSpec struct {
	ID            string          `json:"id" yaml:"id"`
	Goal          string          `json:"goal" yaml:"goal"`
	Roles         map[string]Role `json:"roles" yaml:"roles"`
	StopCondition string          `json:"stop_condition" yaml:"stop_condition"`
	MaxTurns      int             `json:"max_turns" yaml:"max_turns"`
	// MaxTurnsPerAgent caps each agent's guarded turns; zero means no cap
	// beyond MaxTurns.
	MaxTurnsPerAgent int `json:"max_turns_per_agent,omitempty" yaml:"max_turns_per_agent"`
}

// ExpectedRole returns the role assigned to the named agent, if any.
func (t TaskSpec) ExpectedRole(agent string) (Role, bool) {
	r, ok := t.Roles[agent]
	return r, ok
}

// WithDefaults fills unset optional fields.
func (t TaskSpec) WithDefaults() TaskSpec {
	if t.StopCondition == "" {
		t.StopCondition = DefaultStopCondition
	}
	if t.MaxTurns == 0 {
		t.MaxTurns = DefaultMaxTurns
	}
	return t
}

// Validate checks structural soundness of the spec.
func (t TaskSpec) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTaskSpec)
	}
	if t.MaxTurns < 0 {
		return fmt.Errorf("%w: max_turns must be >= 0, got %d", ErrInvalidTaskSpec, t.MaxTurns)
	}
	if t.MaxTurnsPerAgent < 0 {
		return fmt.Errorf("%w: max_turns_per_agent must be >= 0, got %d", ErrInvalidTaskSpec, t.MaxTurnsPerAgent)
	}
	for name, role := range t.Roles {
		if name == "" {
			return fmt.Errorf("%w: empty agent name in roles", ErrInvalidTaskSpec)
		}
		if !role.Valid() {
			return fmt.Errorf("%w: agent %q has invalid role", ErrInvalidTaskSpec, name)
		}
	}
	return nil
}

// Clone returns a deep copy of the spec.
func (t TaskSpec) Clone() TaskSpec {
	c := t
	c.Roles = make(map[string]Role, len(t.Roles))
	for k, v := range t.Roles {
		c.Roles[k] = v
	}
	return c
}

// ParseTaskSpec decodes a YAML document into a validated TaskSpec with
// defaults applied.
func ParseTaskSpec(data []byte) (TaskSpec, error) {
	var spec TaskSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return TaskSpec{}, fmt.Errorf("%w: %v", ErrInvalidTaskSpec, err)
	}
	spec = spec.WithDefaults()
	if err := spec.Validate(); err != nil {
		return TaskSpec{}, err
	}
	return spec, nil
}

// LoadTaskSpec reads and parses a YAML task spec file.
func LoadTaskSpec(path string) (TaskSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TaskSpec{}, fmt.Errorf("failed to read task spec: %w", err)
	}
	return ParseTaskSpec(data)
}
