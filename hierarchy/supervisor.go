package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agentguard/auth"
	"github.com/hupe1980/agentguard/logging"
)

// SupervisorName is the source of every message a supervisor sends.
const SupervisorName = "Supervisor"

var (
	// ErrEscalated is wrapped by workers that hand a task back.
	ErrEscalated = errors.New("worker escalated")
	// ErrNoWorkers is returned when a supervisor is created without workers.
	ErrNoWorkers = errors.New("hierarchy: no workers")
	// ErrWorkerNotFound is returned when a task names an unknown worker.
	ErrWorkerNotFound = errors.New("hierarchy: worker not found")
	// ErrDuplicateWorker is returned when two workers share a name.
	ErrDuplicateWorker = errors.New("hierarchy: duplicate worker")
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusEscalated  Status = "escalated"
	StatusRejected   Status = "rejected"
)

// Task is a unit of delegated work.
type Task struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	AssignedTo string `json:"assigned_to,omitempty"`
	Status     Status `json:"status"`
	Result     string `json:"result,omitempty"`
	// Escalation holds the worker's reason when it gave the task back.
	Escalation string `json:"escalation,omitempty"`
	// Overridden marks tasks the supervisor completed itself.
	Overridden bool `json:"overridden,omitempty"`
}

// OverrideFunc completes an escalated task on the supervisor's behalf.
type OverrideFunc func(ctx context.Context, task Task) (string, error)

// Options configures a Supervisor.
type Options struct {
	// Authenticator, when set, gates every assignment on the worker's token.
	Authenticator *auth.Authenticator
	// TokenIssuer supplies a worker's token. Defaults to Authenticator.Issue.
	TokenIssuer func(worker string) (string, error)
	// Override handles escalations. Defaults to DefaultOverride.
	Override OverrideFunc
	// BlockedTerms reject a task outright. Matching ignores case.
	BlockedTerms []string
	Logger       logging.Logger
}

// Supervisor assigns tasks to workers and takes over escalations. It is safe
// for concurrent use.
type Supervisor struct {
	workers map[string]Worker
	order   []string
	opts    Options
	logger  logging.Logger

	mu  sync.Mutex
	log []Task
}

// DefaultOverride completes the task with a fixed supervisor note.
func DefaultOverride(_ context.Context, task Task) (string, error) {
	return fmt.Sprintf("[%s] Override: Completed escalation of '%s' manually.", SupervisorName, task.Content), nil
}

// NewSupervisor creates a supervisor over workers. The first worker receives
// tasks that name no assignee.
func NewSupervisor(workers []Worker, optFns ...func(o *Options)) (*Supervisor, error) {
	if len(workers) == 0 {
		return nil, ErrNoWorkers
	}

	opts := Options{
		Override: DefaultOverride,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Override == nil {
		opts.Override = DefaultOverride
	}
	if opts.TokenIssuer == nil && opts.Authenticator != nil {
		a := opts.Authenticator
		opts.TokenIssuer = func(worker string) (string, error) {
			tok, err := a.Issue(worker)
			return tok.String(), err
		}
	}

	s := &Supervisor{
		workers: make(map[string]Worker, len(workers)),
		order:   make([]string, 0, len(workers)),
		opts:    opts,
		logger:  logging.ForComponent(opts.Logger, "supervisor"),
	}
	for _, w := range workers {
		name := w.Name()
		if _, dup := s.workers[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateWorker, name)
		}
		s.workers[name] = w
		s.order = append(s.order, name)
	}

	return s, nil
}

// Workers returns the worker names in registration order.
func (s *Supervisor) Workers() []string {
	return append([]string(nil), s.order...)
}

// Assign runs task on its assignee, or on the first worker when none is
// named. Rejections, failed token checks and overrides are reported through
// the returned task's Status; only unknown workers, worker errors and
// cancellation produce an error. Every outcome is appended to the log.
func (s *Supervisor) Assign(ctx context.Context, task Task) (Task, error) {
	task.Status = StatusPending
	task.Result, task.Escalation, task.Overridden = "", "", false

	if err := ctx.Err(); err != nil {
		return task, err
	}

	if term, blocked := s.blocked(task.Content); blocked {
		task.Status = StatusRejected
		task.Result = fmt.Sprintf("System Halted: %s rejected task '%s'.", SupervisorName, task.ID)
		s.logger.Warn("task rejected", "task_id", task.ID, "term", term)
		return s.record(task), nil
	}

	if task.AssignedTo == "" {
		task.AssignedTo = s.order[0]
	}
	w, ok := s.workers[task.AssignedTo]
	if !ok {
		task.Status = StatusFailed
		s.record(task)
		return task, fmt.Errorf("%w: %s", ErrWorkerNotFound, task.AssignedTo)
	}

	if s.opts.Authenticator != nil {
		token, err := s.opts.TokenIssuer(w.Name())
		if err != nil {
			task.Status = StatusFailed
			s.record(task)
			return task, fmt.Errorf("failed to issue token for %s: %w", w.Name(), err)
		}
		if !s.opts.Authenticator.VerifyToken(token, w.Name()) {
			task.Status = StatusFailed
			task.Result = auth.Alert(w.Name())
			s.logger.Warn("security alert", "task_id", task.ID, "worker", w.Name())
			return s.record(task), nil
		}
	}

	s.logger.Info("assigning task", "task_id", task.ID, "worker", w.Name())
	task.Status = StatusInProgress

	out, err := w.Execute(ctx, task)
	switch {
	case errors.Is(err, ErrEscalated):
		task.Status = StatusEscalated
		task.Escalation = err.Error()
		s.logger.Info("handling escalation", "task_id", task.ID, "worker", w.Name(), "reason", err.Error())
		return s.override(ctx, task)
	case err != nil:
		task.Status = StatusFailed
		s.record(task)
		return task, fmt.Errorf("worker %s: %w", w.Name(), err)
	}

	task.Status = StatusCompleted
	task.Result = out
	return s.record(task), nil
}

func (s *Supervisor) override(ctx context.Context, task Task) (Task, error) {
	out, err := s.opts.Override(ctx, task)
	if err != nil {
		task.Status = StatusFailed
		s.record(task)
		return task, fmt.Errorf("override of %s failed: %w", task.ID, err)
	}
	task.Status = StatusCompleted
	task.Result = out
	task.Overridden = true
	return s.record(task), nil
}

func (s *Supervisor) blocked(content string) (string, bool) {
	lower := strings.ToLower(content)
	for _, t := range s.opts.BlockedTerms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && strings.Contains(lower, t) {
			return t, true
		}
	}
	return "", false
}

func (s *Supervisor) record(task Task) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, task)
	return task
}

// Log returns every assignment outcome in order.
func (s *Supervisor) Log() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.log...)
}

// WithAuthenticator gates assignments on worker tokens.
func WithAuthenticator(a *auth.Authenticator) func(o *Options) {
	return func(o *Options) { o.Authenticator = a }
}

// WithTokenIssuer overrides how worker tokens are obtained.
func WithTokenIssuer(fn func(worker string) (string, error)) func(o *Options) {
	return func(o *Options) { o.TokenIssuer = fn }
}

// WithOverride sets the escalation handler.
func WithOverride(fn OverrideFunc) func(o *Options) {
	return func(o *Options) { o.Override = fn }
}

// WithBlockedTerms rejects tasks mentioning any of terms.
func WithBlockedTerms(terms ...string) func(o *Options) {
	return func(o *Options) { o.BlockedTerms = append(o.BlockedTerms, terms...) }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}
