package core

import "context"

// Agent is the opaque generation capability driven by a conductor.
//
// The conductor never inspects agent internals: it only asks for the next
// utterance given the conversation so far, and reads the agent's name and
// self-declared role to tag the result.
//
// Implementations should respect context cancellation; the latency of
// Generate is otherwise unbounded.
type Agent interface {
	Name() string
	Role() Role
	Generate(ctx context.Context, history []Message) (string, error)
}
