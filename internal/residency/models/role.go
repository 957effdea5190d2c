package models

import (
	id "domio/pkg/domain"
)

// ResidentialRole joins a user to a residential with a role and, for
// residents, the residence they occupy.
//
// Invariants:
//   - Exactly one row exists per (user, residential)
//   - ResidenceID equals the residence of the user's active contract, or is
//     nil when the user holds no active contract
//   - Only resident roles may carry a non-nil ResidenceID
type ResidentialRole struct {
	ID            id.RoleID        `json:"id"`
	UserID        id.UserID        `json:"user_id"`
	ResidentialID id.ResidentialID `json:"residential_id"`
	Role          id.RoleName      `json:"role"`
	ResidenceID   *id.ResidenceID  `json:"residence_id,omitempty"`
}

// SetResidence points the role row at the occupied residence.
func (r *ResidentialRole) SetResidence(residenceID id.ResidenceID) {
	rid := residenceID
	r.ResidenceID = &rid
}

// ClearResidence detaches the role row from any residence.
// Idempotent: clearing a detached role is a no-op.
func (r *ResidentialRole) ClearResidence() {
	r.ResidenceID = nil
}
