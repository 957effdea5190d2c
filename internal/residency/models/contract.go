package models

import (
	"time"

	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
)

// Contract is an occupancy agreement between a resident and a residence.
//
// Invariants:
//   - A resident holds at most one active contract at any time
//   - A terminated contract is never deleted, only closed
//     (Active=false, EndDate set)
//   - StartDate is immutable after construction
type Contract struct {
	ID            id.ContractID    `json:"id"`
	ResidentID    id.UserID        `json:"resident_id"`
	ResidenceID   id.ResidenceID   `json:"residence_id"`
	ResidentialID id.ResidentialID `json:"residential_id"`
	StartDate     time.Time        `json:"start_date"`
	EndDate       *time.Time       `json:"end_date,omitempty"`
	Active        bool             `json:"active"`
}

// IsActive reports whether the contract is still open.
func (c *Contract) IsActive() bool {
	return c.Active
}

// Close terminates the contract at the given date.
// Idempotent: closing an already-closed contract is a no-op.
func (c *Contract) Close(end time.Time) {
	if !c.Active {
		return
	}
	c.Active = false
	e := end
	c.EndDate = &e
}

// NewContract validates and constructs an active contract starting at start.
func NewContract(contractID id.ContractID, residentID id.UserID, residenceID id.ResidenceID, residentialID id.ResidentialID, start time.Time) (*Contract, error) {
	if residentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contract resident cannot be nil")
	}
	if residenceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contract residence cannot be nil")
	}
	if start.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contract start date is required")
	}
	return &Contract{
		ID:            contractID,
		ResidentID:    residentID,
		ResidenceID:   residenceID,
		ResidentialID: residentialID,
		StartDate:     start,
		Active:        true,
	}, nil
}
