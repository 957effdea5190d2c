package models

import (
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
)

// ResidenceType classifies a physical unit.
type ResidenceType string

const (
	ResidenceApartment ResidenceType = "apartment"
	ResidenceHouse     ResidenceType = "house"
	ResidenceParking   ResidenceType = "parking"
	ResidenceStorage   ResidenceType = "storage"
)

// Residence is a physical unit within a residential.
//
// Invariants:
//   - Available == (ResidentID == nil) in every settled state; a lifecycle
//     operation may leave it transiently false only between its own steps
//   - ResidentID changes only through AssignTo/ClearOccupant
type Residence struct {
	ID            id.ResidenceID   `json:"id"`
	ResidentialID id.ResidentialID `json:"residential_id"`
	Type          ResidenceType    `json:"type"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Available     bool             `json:"available"`
	ResidentID    *id.UserID       `json:"resident_id,omitempty"`
}

// Occupied reports whether a resident currently holds this unit.
func (r *Residence) Occupied() bool {
	return r.ResidentID != nil
}

// CanAssign checks whether the residence can take a new occupant.
func (r *Residence) CanAssign() error {
	if r.Occupied() || !r.Available {
		return dErrors.New(dErrors.CodeInvariantViolation, "residence already occupied")
	}
	return nil
}

// AssignTo records userID as the occupant and marks the unit unavailable.
// Call CanAssign first.
func (r *Residence) AssignTo(userID id.UserID) {
	uid := userID
	r.ResidentID = &uid
	r.Available = false
}

// ClearOccupant releases the unit and marks it available again.
// Idempotent: clearing an unoccupied residence is a no-op.
func (r *Residence) ClearOccupant() {
	r.ResidentID = nil
	r.Available = true
}

// NewResidence validates and constructs a residence.
func NewResidence(residenceID id.ResidenceID, residentialID id.ResidentialID, rtype ResidenceType, name, description string) (*Residence, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "residence name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "residence name must be 128 characters or less")
	}
	return &Residence{
		ID:            residenceID,
		ResidentialID: residentialID,
		Type:          rtype,
		Name:          name,
		Description:   description,
		Available:     true,
	}, nil
}
