package memory

import (
	"context"
	"sync"

	"domio/internal/audit"
)

// InMemoryStore keeps audit entries in memory for tests/dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

// New constructs an empty in-memory audit store.
func New() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entity, entityID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range s.entries {
		if e.Entity == entity && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByAction(_ context.Context, action audit.Action) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range s.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every entry in append order. Test helper.
func (s *InMemoryStore) All() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry{}, s.entries...)
}
