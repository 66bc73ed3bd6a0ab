package core

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrTurnLimit is returned once a session has used all of its guarded turns.
	ErrTurnLimit = errors.New("turn limit reached")
	// ErrAgentTurnLimit is returned once a single agent has used its share.
	ErrAgentTurnLimit = errors.New("agent turn limit reached")
)

// TurnLimiter counts the guarded turns of a session, in total and per agent.
// Only turns that reach the conductor are counted; callers do not pass
// turns skipped for failed authentication.
type TurnLimiter struct {
	max      int
	perAgent int
	count    int
	byAgent  map[string]int
	mu       sync.Mutex
}

// NewTurnLimiter creates a limiter for the spec's MaxTurns and
// MaxTurnsPerAgent. A MaxTurns below one falls back to DefaultMaxTurns; a
// MaxTurnsPerAgent of zero leaves agents bounded only by the total.
func NewTurnLimiter(spec TaskSpec) *TurnLimiter {
	max := spec.MaxTurns
	if max < 1 {
		max = DefaultMaxTurns
	}
	perAgent := spec.MaxTurnsPerAgent
	if perAgent < 0 {
		perAgent = 0
	}
	return &TurnLimiter{max: max, perAgent: perAgent, byAgent: make(map[string]int)}
}

// Allow records a turn for agent. Nothing is recorded when it returns an
// error: ErrTurnLimit once the session total is spent, ErrAgentTurnLimit
// once the agent's own share is.
func (tl *TurnLimiter) Allow(agent string) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.count >= tl.max {
		return fmt.Errorf("%w: %d", ErrTurnLimit, tl.max)
	}
	if tl.perAgent > 0 && tl.byAgent[agent] >= tl.perAgent {
		return fmt.Errorf("%w: %s used %d", ErrAgentTurnLimit, agent, tl.perAgent)
	}

	tl.count++
	tl.byAgent[agent]++

	return nil
}

// Count returns the number of turns recorded.
func (tl *TurnLimiter) Count() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	return tl.count
}

// CountFor returns the number of turns recorded for agent.
func (tl *TurnLimiter) CountFor(agent string) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	return tl.byAgent[agent]
}

// Remaining returns how many session turns are left.
func (tl *TurnLimiter) Remaining() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	return tl.max - tl.count
}
