package testutil

import (
	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/protocol"
)

// AgentMessageBuilder constructs protocol messages for validator and bus tests.
// Defaults: sender "alice", recipient "bob", content "hello", type text.
type AgentMessageBuilder struct {
	sender, recipient, content string
	opts                       []protocol.MessageOption
}

// NewAgentMessageBuilder creates a builder with defaults.
func NewAgentMessageBuilder() *AgentMessageBuilder {
	return &AgentMessageBuilder{sender: "alice", recipient: "bob", content: "hello"}
}

// From sets the sender (chainable).
func (b *AgentMessageBuilder) From(id string) *AgentMessageBuilder { b.sender = id; return b }

// To sets the recipient (chainable).
func (b *AgentMessageBuilder) To(id string) *AgentMessageBuilder { b.recipient = id; return b }

// Content sets the body (chainable).
func (b *AgentMessageBuilder) Content(c string) *AgentMessageBuilder { b.content = c; return b }

// Type sets the message type (chainable).
func (b *AgentMessageBuilder) Type(t protocol.MessageType) *AgentMessageBuilder {
	b.opts = append(b.opts, protocol.WithType(t))
	return b
}

// Sensitivity tags the message with a sensitivity level (chainable).
func (b *AgentMessageBuilder) Sensitivity(level string) *AgentMessageBuilder {
	b.opts = append(b.opts, protocol.WithSensitivity(level))
	return b
}

// Build returns the message.
func (b *AgentMessageBuilder) Build() protocol.AgentMessage {
	return protocol.NewAgentMessage(b.sender, b.recipient, b.content, b.opts...)
}

// HistoryBuilder accumulates conversation messages for conductor and agent tests.
//
//	msgs := NewHistoryBuilder().Say("Coder", core.RolePrimary, "draft").Messages()
type HistoryBuilder struct {
	msgs []core.Message
}

// NewHistoryBuilder creates an empty builder.
func NewHistoryBuilder() *HistoryBuilder { return &HistoryBuilder{} }

// Say appends a message (chainable).
func (b *HistoryBuilder) Say(source string, role core.Role, content string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewMessage(source, role, content))
	return b
}

// Repeat appends content n times from the same source (chainable).
func (b *HistoryBuilder) Repeat(source string, role core.Role, content string, n int) *HistoryBuilder {
	for range n {
		b.Say(source, role, content)
	}
	return b
}

// Messages returns a copy of the accumulated messages.
func (b *HistoryBuilder) Messages() []core.Message {
	out := make([]core.Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}
