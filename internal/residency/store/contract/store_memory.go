package contract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"domio/internal/residency/models"
	id "domio/pkg/domain"
	"domio/pkg/platform/sentinel"
)

// InMemoryContractStore stores contracts in memory for tests/dev.
// All methods return copies so callers cannot mutate shared state.
type InMemoryContractStore struct {
	mu        sync.RWMutex
	contracts map[id.ContractID]*models.Contract
}

// New constructs an empty in-memory contract store.
func New() *InMemoryContractStore {
	return &InMemoryContractStore{contracts: make(map[id.ContractID]*models.Contract)}
}

func copyContract(c *models.Contract) *models.Contract {
	copied := *c
	if c.EndDate != nil {
		end := *c.EndDate
		copied.EndDate = &end
	}
	return &copied
}

func (s *InMemoryContractStore) FindByID(_ context.Context, contractID id.ContractID) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contract, ok := s.contracts[contractID]
	if !ok {
		return nil, fmt.Errorf("contract %s: %w", contractID, sentinel.ErrNotFound)
	}
	return copyContract(contract), nil
}

func (s *InMemoryContractStore) FindActiveByResident(_ context.Context, residentID id.UserID) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, contract := range s.contracts {
		if contract.ResidentID == residentID && contract.Active {
			return copyContract(contract), nil
		}
	}
	return nil, fmt.Errorf("active contract for resident %s: %w", residentID, sentinel.ErrNotFound)
}

func (s *InMemoryContractStore) ListByResident(_ context.Context, residentID id.UserID) ([]*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Contract
	for _, contract := range s.contracts {
		if contract.ResidentID == residentID {
			out = append(out, copyContract(contract))
		}
	}
	return out, nil
}

// Insert enforces the one-active-contract rule the way the relational
// store's partial unique index does: a second active contract for the same
// resident is a constraint violation, not a silent overwrite.
func (s *InMemoryContractStore) Insert(_ context.Context, contract *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contracts[contract.ID]; exists {
		return fmt.Errorf("contract %s: %w", contract.ID, sentinel.ErrConflict)
	}
	if contract.Active {
		for _, existing := range s.contracts {
			if existing.ResidentID == contract.ResidentID && existing.Active {
				return fmt.Errorf("resident %s already holds an active contract: %w", contract.ResidentID, sentinel.ErrConflict)
			}
		}
	}
	s.contracts[contract.ID] = copyContract(contract)
	return nil
}

// CloseActive closes the contract matching (residentID, active=true).
// Returns closed=false when nothing matched, making retries a no-op.
func (s *InMemoryContractStore) CloseActive(_ context.Context, residentID id.UserID, end time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, contract := range s.contracts {
		if contract.ResidentID == residentID && contract.Active {
			contract.Close(end)
			return true, nil
		}
	}
	return false, nil
}
