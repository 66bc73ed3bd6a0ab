// Package hierarchy delegates tasks from a supervisor to named workers.
//
// A Supervisor screens each task against blocked terms, checks the chosen
// worker's token when an authenticator is configured, and runs the worker.
// A worker that cannot finish returns ErrEscalated; the supervisor then
// overrides and completes the task itself. Every assignment is kept in the
// supervisor's log in the order it was made.
package hierarchy
