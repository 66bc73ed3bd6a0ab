package agent

import (
	"context"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/internal/util"
)

// InstructionContext is what a Provider sees when building instructions.
type InstructionContext struct {
	Agent   string
	Role    core.Role
	History []core.Message
}

// State exposes the context as template variables.
func (ic InstructionContext) State() map[string]any {
	return map[string]any{
		"name":  ic.Agent,
		"role":  ic.Role.String(),
		"turns": len(ic.History),
	}
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(ctx context.Context, ic InstructionContext) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(ctx context.Context, ic InstructionContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ctx context.Context, ic InstructionContext) (string, error) {
	return f(ctx, ic)
}

// Instruction is either a static template string or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a template string.
// Variables {{.name}}, {{.role}} and {{.turns}} are available.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, ic InstructionContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider or rendering
// the template as needed.
func (i Instruction) Resolve(ctx context.Context, ic InstructionContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx, ic)
	}
	return util.RenderTemplate(i.text, ic.State())
}
