// Package runner drives multi-turn exchanges between agents through a
// conductor. It is the fault-injection harness: agents take turns round-robin,
// every turn is guarded, and the outcome of each turn is recorded in a
// Transcript.
//
// # Optional guards
//   - Token gating (WithAuthenticator): each agent receives a token when the
//     run starts and the token is verified before every turn. A failed check
//     records a security alert and the agent is not called.
//   - Ratification (WithCouncil): an accepted completion claim is put to a
//     weighted vote before the run counts as completed.
//
// Runs stop when a completion is accepted (and ratified), when the task's
// turn limit is reached, or when the requested number of turns is used up.
// Run is synchronous; Stream delivers entries as they happen.
package runner
