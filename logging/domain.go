package logging

import "time"

// The helpers below let components keep depending on Logger alone. When the
// configured logger is a GuardLogger they use its domain methods; any other
// Logger gets an equivalent plain entry.

// Turn logs an accepted turn.
func Turn(l Logger, agent, kind string, dur time.Duration) {
	if gl, ok := l.(*GuardLogger); ok {
		gl.LogTurn(agent, kind, dur)
		return
	}
	l.Info("Turn completed", "agent", agent, "result", kind, "duration", dur)
}

// Intervention logs a rejected turn with its clipped content.
func Intervention(l Logger, agent, kind, reason, content string) {
	if gl, ok := l.(*GuardLogger); ok {
		gl.LogIntervention(agent, kind, reason, content)
		return
	}
	l.Warn("Turn rejected", "agent", agent, "result", kind, "reason", reason, "content", Describe(content, MaxContentLen))
}

// Decision logs a consensus resolution.
func Decision(l Logger, rule, outcome string, reached bool, tally map[string]float64) {
	if gl, ok := l.(*GuardLogger); ok {
		gl.LogDecision(rule, outcome, reached, tally)
		return
	}
	l.Info("Consensus resolved", "rule", rule, "outcome", outcome, "consensus_reached", reached)
}

// Auth logs a token verification.
func Auth(l Logger, subject string, ok bool) {
	if gl, isGuard := l.(*GuardLogger); isGuard {
		gl.LogAuth(subject, ok)
		return
	}
	if ok {
		l.Debug("Token verified", "subject", subject, "valid", true)
		return
	}
	l.Warn("Token rejected", "subject", subject, "valid", false)
}

// ForComponent scopes l to a component.
func ForComponent(l Logger, name string) Logger {
	return scoped(l, "component", name, (*GuardLogger).WithComponent)
}

// ForSession scopes l to a session.
func ForSession(l Logger, id string) Logger {
	return scoped(l, "session_id", id, (*GuardLogger).WithSession)
}

func scoped(l Logger, key, value string, guard func(*GuardLogger, string) *GuardLogger) Logger {
	switch v := l.(type) {
	case nil, NoOpLogger:
		return NoOpLogger{}
	case *GuardLogger:
		return guard(v, value)
	default:
		return &attrLogger{next: l, attrs: []any{key, value}}
	}
}

// attrLogger prepends fixed key/value pairs to every entry of a plain Logger.
type attrLogger struct {
	next  Logger
	attrs []any
}

func (a *attrLogger) with(args []any) []any {
	out := make([]any, 0, len(a.attrs)+len(args))
	out = append(out, a.attrs...)
	return append(out, args...)
}

func (a *attrLogger) Debug(msg string, args ...any) { a.next.Debug(msg, a.with(args)...) }
func (a *attrLogger) Info(msg string, args ...any)  { a.next.Info(msg, a.with(args)...) }
func (a *attrLogger) Warn(msg string, args ...any)  { a.next.Warn(msg, a.with(args)...) }
func (a *attrLogger) Error(msg string, args ...any) { a.next.Error(msg, a.with(args)...) }
