// Package core provides the shared schema used by every AgentGuard component.
// It defines:
//
//   - Roles (the closed set of positions an agent may hold in a session)
//   - Messages (immutable conversational records tagged with a role)
//   - History (the append-only, index-addressed log owned by one conductor)
//   - TaskSpec (the immutable ground truth a session is checked against)
//   - Agent (the opaque generation capability driven turn by turn)
//
// The package keeps policy (loop detection, role enforcement, completion
// gating) out of scope; see the conductor package for that.
package core
