package role

import (
	"context"
	"fmt"
	"sync"

	"domio/internal/residency/models"
	id "domio/pkg/domain"
	"domio/pkg/platform/sentinel"
)

type userResidential struct {
	user        id.UserID
	residential id.ResidentialID
}

// InMemoryRoleStore stores role assignments in memory for tests/dev.
// It enforces the one-row-per-(user, residential) rule on Save.
type InMemoryRoleStore struct {
	mu    sync.RWMutex
	byID  map[id.RoleID]*models.ResidentialRole
	byKey map[userResidential]id.RoleID
}

// New constructs an empty in-memory role store.
func New() *InMemoryRoleStore {
	return &InMemoryRoleStore{
		byID:  make(map[id.RoleID]*models.ResidentialRole),
		byKey: make(map[userResidential]id.RoleID),
	}
}

func copyRole(r *models.ResidentialRole) *models.ResidentialRole {
	copied := *r
	if r.ResidenceID != nil {
		rid := *r.ResidenceID
		copied.ResidenceID = &rid
	}
	return &copied
}

func (s *InMemoryRoleStore) FindByUser(_ context.Context, userID id.UserID, residentialID id.ResidentialID) (*models.ResidentialRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roleID, ok := s.byKey[userResidential{userID, residentialID}]
	if !ok {
		return nil, fmt.Errorf("role for user %s: %w", userID, sentinel.ErrNotFound)
	}
	return copyRole(s.byID[roleID]), nil
}

// Save upserts the single role row for (user, residential). A save that
// would create a second row for the same pair replaces the existing one,
// keeping its row identity.
func (s *InMemoryRoleStore) Save(_ context.Context, role *models.ResidentialRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userResidential{role.UserID, role.ResidentialID}
	if existingID, ok := s.byKey[key]; ok && existingID != role.ID {
		copied := copyRole(role)
		copied.ID = existingID
		s.byID[existingID] = copied
		return nil
	}
	s.byKey[key] = role.ID
	s.byID[role.ID] = copyRole(role)
	return nil
}

func (s *InMemoryRoleStore) SetResidence(_ context.Context, roleID id.RoleID, residenceID *id.ResidenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.byID[roleID]
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, sentinel.ErrNotFound)
	}
	if residenceID == nil {
		role.ClearResidence()
		return nil
	}
	role.SetResidence(*residenceID)
	return nil
}
