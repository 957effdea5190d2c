package user

import (
	"context"
	"fmt"
	"sync"

	"domio/internal/residency/models"
	id "domio/pkg/domain"
	"domio/pkg/platform/sentinel"
)

// InMemoryUserStore stores users in memory for tests/dev.
// All methods return copies so callers cannot mutate shared state.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[id.UserID]*models.User)}
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (s *InMemoryUserStore) ListByResidential(_ context.Context, residentialID id.ResidentialID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, user := range s.users {
		if user.ResidentialID == residentialID {
			copied := *user
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryUserStore) Insert(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrConflict)
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *InMemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrNotFound)
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *InMemoryUserStore) SetActive(_ context.Context, userID id.UserID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	user.Active = active
	return nil
}
