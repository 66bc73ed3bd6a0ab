package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/logging"
	"github.com/hupe1980/agentguard/model"
)

// ModelAgentOptions configures a ModelAgent.
type ModelAgentOptions struct {
	Instruction        Instruction
	Description        string
	EnableStreaming    bool
	MaxHistoryMessages int
	Logger             logging.Logger
}

// ModelAgent produces its turns with a language model. Its own past messages
// become assistant turns; everyone else's become user turns prefixed with
// the speaker's name so the model can tell participants apart.
type ModelAgent struct {
	BaseAgent
	llm                model.Model
	instruction        Instruction
	enableStreaming    bool
	maxHistoryMessages int
	logger             logging.Logger
}

// NewModelAgent creates a model-backed agent.
func NewModelAgent(name string, role core.Role, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction: NewInstructionFromText(
			"You are {{.name}}, acting as the {{.role}} agent in a supervised multi-agent session.",
		),
		MaxHistoryMessages: 20,
		Logger:             logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		BaseAgent:          NewBaseAgent(name, role),
		llm:                llm,
		instruction:        opts.Instruction,
		enableStreaming:    opts.EnableStreaming,
		maxHistoryMessages: opts.MaxHistoryMessages,
		logger:             logging.OrNoOp(opts.Logger),
	}
	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}
	return a
}

// Generate implements core.Agent.
func (a *ModelAgent) Generate(ctx context.Context, history []core.Message) (string, error) {
	req, err := a.buildRequest(ctx, history)
	if err != nil {
		return "", err
	}

	info := a.llm.Info()
	a.logger.Debug("model request", "agent", a.Name(), "provider", info.Provider, "model", info.Name, "turns", len(req.Turns))

	respCh, errCh := a.llm.Generate(ctx, req)
	text, err := model.Collect(ctx, respCh, errCh)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", info.Name, err)
	}
	return strings.TrimSpace(text), nil
}

func (a *ModelAgent) buildRequest(ctx context.Context, history []core.Message) (model.Request, error) {
	instructions, err := a.instruction.Resolve(ctx, InstructionContext{
		Agent:   a.Name(),
		Role:    a.Role(),
		History: history,
	})
	if err != nil {
		return model.Request{}, fmt.Errorf("failed to resolve instruction: %w", err)
	}

	if a.maxHistoryMessages > 0 && len(history) > a.maxHistoryMessages {
		history = history[len(history)-a.maxHistoryMessages:]
	}

	turns := make([]model.Turn, 0, len(history)+1)
	for _, m := range history {
		if m.Source == a.Name() {
			turns = append(turns, model.Turn{Role: model.RoleAssistant, Text: m.Content})
			continue
		}
		turns = append(turns, model.Turn{Role: model.RoleUser, Text: fmt.Sprintf("[%s] %s", m.Source, m.Content)})
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != model.RoleUser {
		turns = append(turns, model.Turn{Role: model.RoleUser, Text: "Continue."})
	}

	return model.Request{
		Instructions: instructions,
		Turns:        turns,
		Stream:       a.enableStreaming,
	}, nil
}

// WithInstruction sets the instruction.
func WithInstruction(i Instruction) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.Instruction = i }
}

// WithStreaming enables streamed generation.
func WithStreaming(enabled bool) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.EnableStreaming = enabled }
}

// WithMaxHistoryMessages caps the history sent to the model. Zero sends all.
func WithMaxHistoryMessages(n int) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.MaxHistoryMessages = n }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.Logger = l }
}

var _ core.Agent = (*ModelAgent)(nil)
