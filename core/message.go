package core

import (
	"time"

	"github.com/google/uuid"
)

// Message is one accepted (or candidate) turn in a session. After creation it
// should be treated as immutable; Metadata is copied on construction.
type Message struct {
	Source    string         `json:"source" yaml:"source"`
	Role      Role           `json:"role" yaml:"role"`
	Content   string         `json:"content" yaml:"content"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewMessage creates a message stamped with the current UTC time.
func NewMessage(source string, role Role, content string) Message {
	return Message{
		Source:    source,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// WithMetadata returns a copy of m carrying the given metadata entries merged
// over any existing ones. The receiver is left untouched.
func (m Message) WithMetadata(md map[string]any) Message {
	merged := make(map[string]any, len(m.Metadata)+len(md))
	for k, v := range m.Metadata {
		merged[k] = v
	}
	for k, v := range md {
		merged[k] = v
	}
	m.Metadata = merged
	return m
}

// NewID returns a fresh random identifier for sessions and messages.
func NewID() string { return uuid.NewString() }
