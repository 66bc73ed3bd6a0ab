// Package protocol defines the agent-to-agent message format and the
// structural and authorization checks applied before a message is delivered.
package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType classifies an AgentMessage. The set is closed.
type MessageType string

const (
	// TypeText is free-form conversational content.
	TypeText MessageType = "text"
	// TypeCommand asks the recipient to act.
	TypeCommand MessageType = "command"
	// TypeData carries a structured payload.
	TypeData MessageType = "data"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeCommand, TypeData:
		return true
	default:
		return false
	}
}

// ParseMessageType maps a name (case-insensitive) to a MessageType.
func ParseMessageType(s string) (MessageType, error) {
	t := MessageType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown message type %q", s)
	}
	return t, nil
}

// AgentMessage is one exchange between two agents. It is created once and
// never mutated; use the With* helpers to derive modified copies.
type AgentMessage struct {
	SenderID    string         `json:"sender_id"`
	RecipientID string         `json:"recipient_id"`
	Content     string         `json:"content"`
	Type        MessageType    `json:"message_type"`
	Timestamp   time.Time      `json:"timestamp"`
	ID          string         `json:"message_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// MessageOption customizes NewAgentMessage.
type MessageOption func(m *AgentMessage)

// NewAgentMessage creates a text message with a fresh id and UTC timestamp.
func NewAgentMessage(sender, recipient, content string, opts ...MessageOption) AgentMessage {
	m := AgentMessage{
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
		Type:        TypeText,
		Timestamp:   time.Now().UTC(),
		ID:          uuid.NewString(),
		Metadata:    map[string]any{},
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// WithType sets the message type.
func WithType(t MessageType) MessageOption {
	return func(m *AgentMessage) { m.Type = t }
}

// WithMetadata merges metadata entries into the message.
func WithMetadata(md map[string]any) MessageOption {
	return func(m *AgentMessage) {
		if m.Metadata == nil {
			m.Metadata = make(map[string]any, len(md))
		}
		for k, v := range md {
			m.Metadata[k] = v
		}
	}
}

// WithSensitivity tags the message with the given sensitivity level.
func WithSensitivity(level string) MessageOption {
	return WithMetadata(map[string]any{SensitivityKey: level})
}

// Clone returns a copy whose metadata map is independent of m's.
func (m AgentMessage) Clone() AgentMessage {
	c := m
	if m.Metadata != nil {
		c.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}
