package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/hupe1980/agentguard/conductor"
	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/logging"
)

// DefaultTTL is how long an idle session lives.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Options configures a Store.
type Options struct {
	// TTL is the idle lifetime of a session. Zero or less disables expiry.
	TTL time.Duration
	// CleanupInterval is how often expired sessions are purged (default TTL/2).
	CleanupInterval time.Duration
	// ConductorOptions are applied to every conductor the store creates.
	ConductorOptions []func(o *conductor.Options)
	Logger           logging.Logger
}

// Store is a TTL-bounded registry of conductors. It is safe for concurrent use.
type Store struct {
	items  *cache.Cache
	ttl    time.Duration
	copts  []func(o *conductor.Options)
	logger logging.Logger
}

// NewStore constructs an empty store.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := Options{
		TTL:    DefaultTTL,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	cleanup := opts.CleanupInterval
	if cleanup <= 0 && ttl > 0 {
		cleanup = ttl / 2
	}

	s := &Store{
		items:  cache.New(ttl, cleanup),
		ttl:    ttl,
		copts:  opts.ConductorOptions,
		logger: logging.ForComponent(opts.Logger, "session"),
	}

	s.items.OnEvicted(func(id string, _ any) {
		s.logger.Debug("session evicted", "session_id", id)
	})

	return s
}

// Create starts a session for spec and returns its id and conductor.
func (s *Store) Create(spec core.TaskSpec) (string, *conductor.Conductor, error) {
	id := core.NewID()

	copts := make([]func(o *conductor.Options), 0, len(s.copts)+1)
	copts = append(copts, s.copts...)
	copts = append(copts, conductor.WithSessionID(id))

	c, err := conductor.New(spec, copts...)
	if err != nil {
		return "", nil, err
	}

	if err := s.items.Add(id, c, cache.DefaultExpiration); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	logging.ForSession(s.logger, id).Info("session created", "task_id", spec.ID)

	return id, c, nil
}

// Get returns the conductor for id and restarts its idle timer.
func (s *Store) Get(id string) (*conductor.Conductor, error) {
	v, ok := s.items.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	c := v.(*conductor.Conductor)
	s.items.Set(id, c, cache.DefaultExpiration)

	return c, nil
}

// Delete ends a session. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) {
	s.items.Delete(id)
}

// Len returns the number of stored sessions, including expired ones that
// have not been purged yet.
func (s *Store) Len() int { return s.items.ItemCount() }

// IDs returns the ids of all live sessions.
func (s *Store) IDs() []string {
	items := s.items.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	return ids
}

// Purge removes expired sessions immediately.
func (s *Store) Purge() { s.items.DeleteExpired() }

// WithTTL sets the idle lifetime.
func WithTTL(ttl time.Duration) func(o *Options) {
	return func(o *Options) { o.TTL = ttl }
}

// WithCleanupInterval sets the purge interval.
func WithCleanupInterval(d time.Duration) func(o *Options) {
	return func(o *Options) { o.CleanupInterval = d }
}

// WithConductorOptions sets options for every new conductor.
func WithConductorOptions(optFns ...func(o *conductor.Options)) func(o *Options) {
	return func(o *Options) { o.ConductorOptions = optFns }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}
