// Package agent contains the agent implementations driven by a conductor.
//
// Every agent satisfies core.Agent: it has a name, a self-declared role and a
// Generate method that turns the conversation so far into its next utterance.
// The package offers three groups:
//
//  1. Building blocks (BaseAgent, FuncAgent, ScriptedAgent)
//  2. ModelAgent, which drives a model.Model provider
//  3. Fault-injection agents (Stubborn, Drifting, PrematureCloser, RoleBreaker)
//     that reproduce the failure classes the conductor guards against
//
// Agents never see conductor state. They only receive the history slice the
// caller hands them.
package agent
