package core

import "sync"

// History is the ordered, append-only log of accepted messages for one
// session. It is safe for concurrent access.
//
// Contract:
//   - Append is the only way to add entries; existing entries are never edited
//   - Messages and Last return defensive copies
//   - Reset is the only removal and clears the whole log (full session reset)
type History struct {
	mu       sync.RWMutex
	messages []Message
}

// NewHistory creates an empty history, optionally seeded with messages.
func NewHistory(seed ...Message) *History {
	h := &History{messages: make([]Message, 0, len(seed))}
	h.messages = append(h.messages, seed...)
	return h
}

// Append adds a message to the end of the log.
func (h *History) Append(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, m)
}

// Len returns the number of accepted messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// At returns the message at index i and whether it exists.
func (h *History) At(i int) (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= len(h.messages) {
		return Message{}, false
	}
	return h.messages[i], true
}

// Last returns a copy of the most recent n messages (fewer if the log is shorter).
func (h *History) Last(n int) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 {
		return []Message{}
	}
	if n > len(h.messages) {
		n = len(h.messages)
	}
	out := make([]Message, n)
	copy(out, h.messages[len(h.messages)-n:])
	return out
}

// Messages returns a defensive copy of the full log.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Contents returns the content strings of all messages in order.
func (h *History) Contents() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.messages))
	for i, m := range h.messages {
		out[i] = m.Content
	}
	return out
}

// Reset clears the log. It is reserved for starting a session over.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}
