// Package logging provides a minimal logging interface and adapters for AgentGuard.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the conductor, authenticator, bus and runner use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - GuardLogger wrapping Go's structured logging with domain helpers
//   - Turn, Intervention, Decision and Auth, which use those helpers when the
//     configured Logger is a GuardLogger
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	c, err := conductor.New(spec, conductor.WithLogger(logger), conductor.WithSessionID(id))
//	if err != nil {
//		return err
//	}
package logging
