package residence

import (
	"context"
	"fmt"
	"sync"

	"domio/internal/residency/models"
	id "domio/pkg/domain"
	"domio/pkg/platform/sentinel"
)

// InMemoryResidenceStore stores residences in memory for tests/dev.
// All methods return copies so callers cannot mutate shared state.
type InMemoryResidenceStore struct {
	mu         sync.RWMutex
	residences map[id.ResidenceID]*models.Residence
}

// New constructs an empty in-memory residence store.
func New() *InMemoryResidenceStore {
	return &InMemoryResidenceStore{residences: make(map[id.ResidenceID]*models.Residence)}
}

func copyResidence(r *models.Residence) *models.Residence {
	copied := *r
	if r.ResidentID != nil {
		uid := *r.ResidentID
		copied.ResidentID = &uid
	}
	return &copied
}

func (s *InMemoryResidenceStore) FindByID(_ context.Context, residenceID id.ResidenceID) (*models.Residence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	residence, ok := s.residences[residenceID]
	if !ok {
		return nil, fmt.Errorf("residence %s: %w", residenceID, sentinel.ErrNotFound)
	}
	return copyResidence(residence), nil
}

func (s *InMemoryResidenceStore) ListByResidential(_ context.Context, residentialID id.ResidentialID) ([]*models.Residence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Residence
	for _, residence := range s.residences {
		if residence.ResidentialID == residentialID {
			out = append(out, copyResidence(residence))
		}
	}
	return out, nil
}

func (s *InMemoryResidenceStore) Insert(_ context.Context, residence *models.Residence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.residences[residence.ID]; exists {
		return fmt.Errorf("residence %s: %w", residence.ID, sentinel.ErrConflict)
	}
	if s.nameTaken(residence) {
		return fmt.Errorf("residence name %q: %w", residence.Name, sentinel.ErrConflict)
	}
	s.residences[residence.ID] = copyResidence(residence)
	return nil
}

func (s *InMemoryResidenceStore) Update(_ context.Context, residence *models.Residence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.residences[residence.ID]; !ok {
		return fmt.Errorf("residence %s: %w", residence.ID, sentinel.ErrNotFound)
	}
	if s.nameTaken(residence) {
		return fmt.Errorf("residence name %q: %w", residence.Name, sentinel.ErrConflict)
	}
	s.residences[residence.ID] = copyResidence(residence)
	return nil
}

// nameTaken mirrors the unique (residential_id, name) index of the postgres
// store. Callers hold the write lock.
func (s *InMemoryResidenceStore) nameTaken(residence *models.Residence) bool {
	for _, existing := range s.residences {
		if existing.ID != residence.ID &&
			existing.ResidentialID == residence.ResidentialID &&
			existing.Name == residence.Name {
			return true
		}
	}
	return false
}

func (s *InMemoryResidenceStore) Delete(_ context.Context, residenceID id.ResidenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.residences[residenceID]; !ok {
		return fmt.Errorf("residence %s: %w", residenceID, sentinel.ErrNotFound)
	}
	delete(s.residences, residenceID)
	return nil
}

// ClaimIfAvailable mirrors the conditional UPDATE of the postgres store: the
// check and the write happen under one lock, so of two racing claims exactly
// one succeeds.
func (s *InMemoryResidenceStore) ClaimIfAvailable(_ context.Context, residenceID id.ResidenceID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	residence, ok := s.residences[residenceID]
	if !ok {
		return fmt.Errorf("residence %s: %w", residenceID, sentinel.ErrNotFound)
	}
	if residence.Occupied() || !residence.Available {
		return fmt.Errorf("residence %s: %w", residenceID, sentinel.ErrConflict)
	}
	residence.AssignTo(userID)
	return nil
}

func (s *InMemoryResidenceStore) Release(_ context.Context, residenceID id.ResidenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	residence, ok := s.residences[residenceID]
	if !ok {
		return fmt.Errorf("residence %s: %w", residenceID, sentinel.ErrNotFound)
	}
	residence.ClearOccupant()
	return nil
}
