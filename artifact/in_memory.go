package artifact

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when an artifact for the given session / name pair
// does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store persists opaque artifacts keyed by session and name.
type Store interface {
	Save(sessionID, name string, data []byte) error
	Get(sessionID, name string) ([]byte, error)
	// List returns names in the order they were first saved.
	List(sessionID string) ([]string, error)
	Delete(sessionID, name string) error
}

type bucket struct {
	order []string
	data  map[string][]byte
}

// InMemoryStore is a process-local Store. Data is copied on save and on
// retrieval.
type InMemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*bucket // sessionID -> artifacts
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{buckets: make(map[string]*bucket)}
}

// Save stores or overwrites an artifact. Overwriting keeps its list position.
func (s *InMemoryStore) Save(sessionID, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[sessionID]
	if !ok {
		b = &bucket{data: make(map[string][]byte)}
		s.buckets[sessionID] = b
	}
	if _, exists := b.data[name]; !exists {
		b.order = append(b.order, name)
	}
	b.data[name] = append([]byte(nil), data...)
	return nil
}

// Get returns a copy of the artifact or ErrNotFound.
func (s *InMemoryStore) Get(sessionID, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := b.data[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// List returns a snapshot of the session's artifact names.
func (s *InMemoryStore) List(sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[sessionID]
	if !ok {
		return []string{}, nil
	}
	return append([]string{}, b.order...), nil
}

// Delete removes the artifact or returns ErrNotFound.
func (s *InMemoryStore) Delete(sessionID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[sessionID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := b.data[name]; !ok {
		return ErrNotFound
	}
	delete(b.data, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	if len(b.order) == 0 {
		delete(s.buckets, sessionID)
	}
	return nil
}
