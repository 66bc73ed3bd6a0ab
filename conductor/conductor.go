// Package conductor guards agent turns inside a session.
//
// A Conductor owns one TaskSpec and one append-only History. Every Step runs
// the agent, then checks the output in a fixed order:
//
//  1. loop detection against recent accepted history
//  2. role and capability validation against the TaskSpec
//  3. completion claims, which must carry a proof marker
//
// A turn that fails any check is returned as a Result with a non-accepted
// Kind and never touches the history.
package conductor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/logging"
)

// ErrGeneration wraps failures returned by an agent's Generate call.
var ErrGeneration = errors.New("agent generation failed")

const tracerName = "github.com/hupe1980/agentguard/conductor"

// Markers are the reserved substrings the conductor looks for. Matching is
// literal and case-sensitive.
type Markers struct {
	// Privileged flags a capability request only primary agents may make.
	Privileged string
	// Proof must accompany a completion claim.
	Proof string
}

// DefaultMarkers returns the standard marker set.
func DefaultMarkers() Markers {
	return Markers{Privileged: "EXECUTE_CODE", Proof: "verified_proof"}
}

// Options configures a Conductor.
type Options struct {
	Logger         logging.Logger
	Markers        Markers
	LoopWindow     int
	OscillationLag int
	Tracer         trace.Tracer
	// SessionID, when set, is attached to every log entry.
	SessionID string
}

// Conductor is the per-session oversight state machine. Steps are serialized:
// concurrent calls on one Conductor wait for each other.
type Conductor struct {
	spec    core.TaskSpec
	history *core.History
	loops   LoopDetector
	markers Markers
	logger  logging.Logger
	tracer  trace.Tracer

	mu            sync.Mutex
	completed     bool
	interventions []Result
}

// New creates a conductor for spec. The spec is copied and validated.
func New(spec core.TaskSpec, optFns ...func(o *Options)) (*Conductor, error) {
	spec = spec.Clone().WithDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	opts := Options{
		Logger:         logging.NoOpLogger{},
		Markers:        DefaultMarkers(),
		LoopWindow:     DefaultLoopWindow,
		OscillationLag: DefaultOscillationLag,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.Markers.Privileged == "" {
		opts.Markers.Privileged = DefaultMarkers().Privileged
	}
	if opts.Markers.Proof == "" {
		opts.Markers.Proof = DefaultMarkers().Proof
	}

	logger := logging.ForComponent(opts.Logger, "conductor")
	if opts.SessionID != "" {
		logger = logging.ForSession(logger, opts.SessionID)
	}

	return &Conductor{
		spec:    spec,
		history: core.NewHistory(),
		loops:   LoopDetector{Window: opts.LoopWindow, Lag: opts.OscillationLag},
		markers: opts.Markers,
		logger:  logger,
		tracer:  opts.Tracer,
	}, nil
}

// Spec returns a copy of the session's task spec.
func (c *Conductor) Spec() core.TaskSpec { return c.spec.Clone() }

// History returns a copy of the accepted messages.
func (c *Conductor) History() []core.Message { return c.history.Messages() }

// Len returns the number of accepted messages.
func (c *Conductor) Len() int { return c.history.Len() }

// Completed reports whether a verified completion claim has been accepted.
func (c *Conductor) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Interventions returns every rejected turn in the order it happened.
func (c *Conductor) Interventions() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.interventions))
	copy(out, c.interventions)
	return out
}

// Reset clears history, completion state and the intervention log.
func (c *Conductor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Reset()
	c.completed = false
	c.interventions = nil
}

// Step runs one guarded turn for agent. input is the context handed to the
// agent; when nil the accepted history is used. A non-nil error is returned
// only when the agent itself fails, and the history is left untouched.
func (c *Conductor) Step(ctx context.Context, agent core.Agent, input []core.Message) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, role := agent.Name(), agent.Role()

	ctx, span := c.tracer.Start(ctx, "conductor.step", trace.WithAttributes(
		attribute.String("agent.name", name),
		attribute.String("agent.role", role.String()),
		attribute.String("task.id", c.spec.ID),
	))
	defer span.End()

	start := time.Now()

	if input == nil {
		input = c.history.Messages()
	}

	content, err := agent.Generate(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		c.logger.Error("agent generation failed", "agent", name, "error", err)
		return Result{}, fmt.Errorf("%w: %s: %w", ErrGeneration, name, err)
	}

	res := c.evaluate(name, role, content)
	span.SetAttributes(attribute.String("result.kind", res.Kind.String()))

	if res.Accepted() {
		logging.Turn(c.logger, name, res.Kind.String(), time.Since(start))
	} else {
		c.interventions = append(c.interventions, res)
		logging.Intervention(c.logger, name, res.Kind.String(), res.Reason, content)
	}

	return res, nil
}

func (c *Conductor) evaluate(name string, role core.Role, content string) Result {
	res := Result{Agent: name, Role: role, Content: content}

	if reason, looped := c.loops.Check(content, c.history.Messages()); looped {
		res.Kind, res.Reason = KindLoop, reason
		return res
	}

	msg := core.NewMessage(name, role, content)

	if reason, ok := c.validate(msg); !ok {
		res.Kind, res.Reason = KindViolation, reason
		return res
	}

	claimed := strings.Contains(content, c.spec.StopCondition)
	if claimed && !strings.Contains(content, c.markers.Proof) {
		res.Kind = KindOverride
		res.Reason = fmt.Sprintf("Task not accepted as done. Please provide '%s'.", c.markers.Proof)
		return res
	}

	c.history.Append(msg)
	if claimed {
		c.completed = true
	}

	res.Kind = KindAccepted
	res.Completion = claimed
	return res
}

func (c *Conductor) validate(msg core.Message) (string, bool) {
	if !msg.Role.Valid() {
		return fmt.Sprintf("Agent %s declared an unknown role", msg.Source), false
	}

	if expected, ok := c.spec.ExpectedRole(msg.Source); ok && msg.Role != expected {
		return fmt.Sprintf("Agent %s claimed role %s but is assigned %s", msg.Source, msg.Role, expected), false
	}

	if msg.Role != core.RolePrimary && strings.Contains(msg.Content, c.markers.Privileged) {
		return fmt.Sprintf("Role %s is not authorized to %s", msg.Role, c.markers.Privileged), false
	}

	return "", true
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithSessionID tags the conductor's log entries with a session id.
func WithSessionID(id string) func(o *Options) {
	return func(o *Options) { o.SessionID = id }
}

// WithMarkers overrides the reserved markers. Empty fields keep their defaults.
func WithMarkers(m Markers) func(o *Options) {
	return func(o *Options) { o.Markers = m }
}

// WithLoopWindow sets how many recent messages are searched for repeats.
func WithLoopWindow(n int) func(o *Options) {
	return func(o *Options) { o.LoopWindow = n }
}

// WithOscillationLag sets the lag of the oscillation check.
func WithOscillationLag(n int) func(o *Options) {
	return func(o *Options) { o.OscillationLag = n }
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) func(o *Options) {
	return func(o *Options) { o.Tracer = t }
}
