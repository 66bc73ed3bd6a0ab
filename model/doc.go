// Package model defines the provider-agnostic text generation interface that
// backs model-driven agents, plus a deterministic MockModel for tests.
//
// Providers (OpenAI, Anthropic) live in sub-packages and adapt their SDKs to
// the Model interface so agents stay decoupled from vendor types. Generation
// is streamed over channels; Collect drains a stream into the final text.
package model
