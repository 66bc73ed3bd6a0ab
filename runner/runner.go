package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentguard/auth"
	"github.com/hupe1980/agentguard/conductor"
	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/logging"
)

// ErrNoAgents is returned when a run is started without agents.
var ErrNoAgents = errors.New("runner: no agents")

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Logger receives turn outcomes.
	Logger logging.Logger
	// Authenticator enables token-gated turns.
	Authenticator *auth.Authenticator
	// TokenIssuer produces the token presented by an agent. It defaults to
	// Authenticator.Issue.
	TokenIssuer func(agent string) (string, error)
	// Council ratifies completion claims.
	Council *Council
	// EntryBufferSize sets channel buffering for Stream.
	EntryBufferSize int
}

// Runner coordinates turn taking for one conductor.
type Runner struct {
	conductor   *conductor.Conductor
	logger      logging.Logger
	auth        *auth.Authenticator
	issueToken  func(agent string) (string, error)
	council     *Council
	entryBuffer int
}

// New constructs a Runner with optional overrides.
func New(c *conductor.Conductor, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		EntryBufferSize: 16,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Runner{
		conductor:   c,
		logger:      logging.OrNoOp(opts.Logger),
		auth:        opts.Authenticator,
		issueToken:  opts.TokenIssuer,
		council:     opts.Council,
		entryBuffer: opts.EntryBufferSize,
	}

	if r.issueToken == nil && r.auth != nil {
		r.issueToken = func(agent string) (string, error) {
			tok, err := r.auth.Issue(agent)
			if err != nil {
				return "", err
			}
			return tok.String(), nil
		}
	}

	return r
}

// Conductor returns the guarded conductor.
func (r *Runner) Conductor() *conductor.Conductor { return r.conductor }

// Run alternates agents round-robin for up to turns turns (the task's
// MaxTurns when turns <= 0) and returns the transcript. An error is returned
// when an agent fails to generate or ctx is canceled; the transcript up to
// that point is returned alongside it.
func (r *Runner) Run(ctx context.Context, agents []core.Agent, turns int) (*Transcript, error) {
	t := &Transcript{TaskID: r.conductor.Spec().ID}
	err := r.run(ctx, agents, turns, t, func(Entry) bool { return true })
	return t, err
}

// Stream starts an asynchronous run. Entries are delivered as they are
// recorded; the error channel carries at most one error. Both channels are
// closed when the run ends.
func (r *Runner) Stream(ctx context.Context, agents []core.Agent, turns int) (<-chan Entry, <-chan error) {
	entries := make(chan Entry, r.entryBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(entries)
		defer close(errCh)

		t := &Transcript{TaskID: r.conductor.Spec().ID}
		err := r.run(ctx, agents, turns, t, func(e Entry) bool {
			select {
			case <-ctx.Done():
				return false
			case entries <- e:
				return true
			}
		})
		if err != nil {
			errCh <- err
		}
	}()

	return entries, errCh
}

func (r *Runner) run(ctx context.Context, agents []core.Agent, turns int, t *Transcript, emit func(Entry) bool) error {
	if len(agents) == 0 {
		return ErrNoAgents
	}

	spec := r.conductor.Spec()
	if turns <= 0 {
		turns = spec.MaxTurns
	}
	limiter := core.NewTurnLimiter(spec)

	tokens, err := r.issueTokens(agents)
	if err != nil {
		return err
	}

	record := func(e Entry) bool {
		t.Entries = append(t.Entries, e)
		return emit(e)
	}

	t.StopReason = StopTurnsExhausted

	for i := 0; i < turns; i++ {
		if err := ctx.Err(); err != nil {
			t.StopReason = StopCanceled
			return err
		}

		agent := agents[i%len(agents)]
		turn := i + 1

		if r.auth != nil && !r.auth.VerifyToken(tokens[agent.Name()], agent.Name()) {
			r.logger.Warn("security alert", "agent", agent.Name(), "turn", turn)
			alert := Entry{
				Turn:     turn,
				Kind:     EntrySecurityAlert,
				Agent:    agent.Name(),
				Response: auth.Alert(agent.Name()),
			}
			if !record(alert) {
				t.StopReason = StopCanceled
				return ctx.Err()
			}
			continue
		}

		if err := limiter.Allow(agent.Name()); err != nil {
			if errors.Is(err, core.ErrAgentTurnLimit) {
				r.logger.Debug("agent turn limit reached", "agent", agent.Name(), "turn", turn)
				continue
			}
			r.logger.Info("turn limit reached", "task_id", spec.ID, "max_turns", spec.MaxTurns)
			t.StopReason = StopTurnLimit
			return nil
		}

		res, err := r.conductor.Step(ctx, agent, nil)
		if err != nil {
			t.StopReason = StopGenerationFailed
			return err
		}

		r.logger.Debug("turn", "agent", agent.Name(), "turn", turn, "result", res.Kind.String())

		if !record(Entry{Turn: turn, Kind: EntryTurn, Agent: agent.Name(), Result: &res, Response: res.Response()}) {
			t.StopReason = StopCanceled
			return ctx.Err()
		}

		if !res.Completion {
			continue
		}

		if r.council == nil {
			t.Completed = true
			t.StopReason = StopCompleted
			return nil
		}

		decision, ratified, err := r.council.Ratify(ctx, res, r.conductor.History())
		if err != nil {
			return fmt.Errorf("ratification failed: %w", err)
		}

		response := fmt.Sprintf("Completion ratified (%s)", decision.Outcome)
		if !ratified {
			response = fmt.Sprintf("Completion not ratified (%s)", decision.Outcome)
		}
		record(Entry{Turn: turn, Kind: EntryRatification, Agent: agent.Name(), Decision: &decision, Response: response})

		if ratified {
			t.Completed = true
			t.StopReason = StopCompleted
		} else {
			t.StopReason = StopRatificationDenied
		}
		return nil
	}

	return nil
}

func (r *Runner) issueTokens(agents []core.Agent) (map[string]string, error) {
	if r.auth == nil {
		return nil, nil
	}
	tokens := make(map[string]string, len(agents))
	for _, a := range agents {
		if _, ok := tokens[a.Name()]; ok {
			continue
		}
		tok, err := r.issueToken(a.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to issue token for %s: %w", a.Name(), err)
		}
		tokens[a.Name()] = tok
	}
	return tokens, nil
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithAuthenticator enables token-gated turns.
func WithAuthenticator(a *auth.Authenticator) func(o *Options) {
	return func(o *Options) { o.Authenticator = a }
}

// WithTokenIssuer overrides how agent tokens are obtained.
func WithTokenIssuer(fn func(agent string) (string, error)) func(o *Options) {
	return func(o *Options) { o.TokenIssuer = fn }
}

// WithCouncil enables ratification of completion claims.
func WithCouncil(c *Council) func(o *Options) {
	return func(o *Options) { o.Council = c }
}

// WithEntryBufferSize sets Stream's channel buffer.
func WithEntryBufferSize(n int) func(o *Options) {
	return func(o *Options) { o.EntryBufferSize = n }
}
