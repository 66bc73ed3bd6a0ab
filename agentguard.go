// Package agentguard provides a high-level façade over the trust and
// oversight components: token authentication, message validation, consensus
// and guarded sessions. Most applications interact with this package by:
//  1. Creating a Guard via New() or NewFromConfig()
//  2. Starting a session for a TaskSpec (StartSession)
//  3. Running guarded turns (Step) or whole exchanges (Run)
//
// Neighbouring constructs reach the shared authenticator, validator and
// consensus engine through accessors; Bus wires them onto a NATS connection.
package agentguard

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentguard/artifact"
	"github.com/hupe1980/agentguard/auth"
	"github.com/hupe1980/agentguard/bus"
	"github.com/hupe1980/agentguard/conductor"
	"github.com/hupe1980/agentguard/config"
	"github.com/hupe1980/agentguard/consensus"
	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/hierarchy"
	"github.com/hupe1980/agentguard/logging"
	"github.com/hupe1980/agentguard/protocol"
	"github.com/hupe1980/agentguard/runner"
	"github.com/hupe1980/agentguard/session"
)

// Options configures a Guard.
type Options struct {
	// Secret keys the authenticator. Required.
	Secret []byte
	// AuthOptions tune the authenticator (MAC, TTL, clock).
	AuthOptions []func(o *auth.Options)
	// AuthorizedPairs restricts message paths. Empty allows all.
	AuthorizedPairs []protocol.Pair
	// SessionTTL is the idle lifetime of sessions.
	SessionTTL time.Duration
	// ConductorOptions apply to every session's conductor.
	ConductorOptions []func(o *conductor.Options)
	// TaskDefaults fills unset TaskSpec fields before a session starts.
	TaskDefaults func(spec core.TaskSpec) core.TaskSpec
	// Archive keeps the transcript of every Run. Nil disables archiving.
	Archive artifact.Store
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Guard aggregates the components sharing one secret and one session store.
type Guard struct {
	auth         *auth.Authenticator
	validator    *protocol.Validator
	consensus    *consensus.Engine
	sessions     *session.Store
	archive      artifact.Store
	taskDefaults func(spec core.TaskSpec) core.TaskSpec
	logger       logging.Logger
}

// New creates a Guard.
func New(optFns ...func(o *Options)) (*Guard, error) {
	opts := Options{
		SessionTTL: session.DefaultTTL,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrNoOp(opts.Logger)

	authOpts := append([]func(o *auth.Options){auth.WithLogger(logger)}, opts.AuthOptions...)
	a, err := auth.New(opts.Secret, authOpts...)
	if err != nil {
		return nil, err
	}

	conductorOpts := append([]func(o *conductor.Options){conductor.WithLogger(logger)}, opts.ConductorOptions...)

	return &Guard{
		auth: a,
		validator: protocol.NewValidator(
			protocol.WithAuthorizedPairs(opts.AuthorizedPairs...),
			protocol.WithValidatorLogger(logger),
		),
		consensus: consensus.New(consensus.WithLogger(logger)),
		sessions: session.NewStore(
			session.WithTTL(opts.SessionTTL),
			session.WithConductorOptions(conductorOpts...),
			session.WithLogger(logger),
		),
		archive:      opts.Archive,
		taskDefaults: opts.TaskDefaults,
		logger:       logger,
	}, nil
}

// NewFromConfig creates a Guard from a loaded configuration. The secret is
// read from the environment variable the config names.
func NewFromConfig(cfg *config.Config, optFns ...func(o *Options)) (*Guard, error) {
	secret, err := cfg.SecretKey()
	if err != nil {
		return nil, err
	}
	authOpts, err := cfg.AuthOptions()
	if err != nil {
		return nil, err
	}
	pairs, err := cfg.AuthorizedPairs()
	if err != nil {
		return nil, err
	}

	base := func(o *Options) {
		o.Secret = secret
		o.AuthOptions = authOpts
		o.AuthorizedPairs = pairs
		o.SessionTTL = cfg.SessionTTL()
		o.ConductorOptions = cfg.ConductorOptions()
		o.TaskDefaults = cfg.ApplyTaskDefaults
		o.Logger = cfg.Logger(nil)
	}

	return New(append([]func(o *Options){base}, optFns...)...)
}

// Authenticator returns the shared authenticator.
func (g *Guard) Authenticator() *auth.Authenticator { return g.auth }

// Validator returns the shared message validator.
func (g *Guard) Validator() *protocol.Validator { return g.validator }

// Consensus returns the consensus engine.
func (g *Guard) Consensus() *consensus.Engine { return g.consensus }

// Sessions returns the session store.
func (g *Guard) Sessions() *session.Store { return g.sessions }

// StartSession creates a guarded session for spec.
func (g *Guard) StartSession(spec core.TaskSpec) (string, *conductor.Conductor, error) {
	if g.taskDefaults != nil {
		spec = g.taskDefaults(spec)
	}
	return g.sessions.Create(spec)
}

// Step runs one guarded turn in the given session.
func (g *Guard) Step(ctx context.Context, sessionID string, agent core.Agent, input []core.Message) (conductor.Result, error) {
	c, err := g.sessions.Get(sessionID)
	if err != nil {
		return conductor.Result{}, err
	}
	return c.Step(ctx, agent, input)
}

// Run drives agents through the given session with token-gated turns. With an
// archive configured the transcript is saved even when the run fails.
func (g *Guard) Run(
	ctx context.Context,
	sessionID string,
	agents []core.Agent,
	turns int,
	optFns ...func(o *runner.Options),
) (*runner.Transcript, error) {
	c, err := g.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	base := func(o *runner.Options) {
		o.Authenticator = g.auth
		o.Logger = g.logger
	}

	tr, err := runner.New(c, append([]func(o *runner.Options){base}, optFns...)...).Run(ctx, agents, turns)
	if g.archive != nil && tr != nil {
		if _, aerr := artifact.SaveTranscript(g.archive, sessionID, tr); aerr != nil {
			g.logger.Warn("failed to archive transcript", "session", sessionID, "error", aerr)
		}
	}
	return tr, err
}

// Transcripts returns the archived transcripts of a session, oldest first.
func (g *Guard) Transcripts(sessionID string) ([]*runner.Transcript, error) {
	if g.archive == nil {
		return nil, nil
	}
	return artifact.Transcripts(g.archive, sessionID)
}

// Ratify puts a completion claim to a majority vote.
func (g *Guard) Ratify(ctx context.Context, sessionID string, claim conductor.Result, voters ...runner.Voter) (consensus.FinalDecision, bool, error) {
	c, err := g.sessions.Get(sessionID)
	if err != nil {
		return consensus.FinalDecision{}, false, err
	}
	return runner.NewCouncil(g.consensus, voters...).Ratify(ctx, claim, c.History())
}

// IssueToken issues an identity token for an agent.
func (g *Guard) IssueToken(agent string) (string, error) {
	tok, err := g.auth.Issue(agent)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return tok.String(), nil
}

// Bus creates a message bus on conn sharing the guard's secret and validator.
func (g *Guard) Bus(conn bus.Conn, optFns ...func(o *bus.Options)) *bus.Bus {
	base := func(o *bus.Options) {
		o.Validator = g.validator
		o.Logger = g.logger
	}
	return bus.New(conn, g.auth, append([]func(o *bus.Options){base}, optFns...)...)
}

// Supervisor creates a supervisor whose workers must hold tokens from the
// guard's authenticator.
func (g *Guard) Supervisor(workers []hierarchy.Worker, optFns ...func(o *hierarchy.Options)) (*hierarchy.Supervisor, error) {
	base := func(o *hierarchy.Options) {
		o.Authenticator = g.auth
		o.Logger = g.logger
	}
	return hierarchy.NewSupervisor(workers, append([]func(o *hierarchy.Options){base}, optFns...)...)
}
