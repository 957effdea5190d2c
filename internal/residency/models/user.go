package models

import (
	id "domio/pkg/domain"
)

// User is an account within a residential, owned by the identity system.
//
// Invariants:
//   - Users are never deleted, only deactivated (Active=false)
//   - Active is mutated only by the lifecycle orchestrator's enable/disable
//     steps; profile fields are mutated by out-of-scope screens
type User struct {
	ID            id.UserID        `json:"id"`
	ResidentialID id.ResidentialID `json:"residential_id"`
	FirstName     string           `json:"first_name"`
	LastName      string           `json:"last_name"`
	Email         string           `json:"email"`
	PhotoURL      string           `json:"photo_url"`
	Active        bool             `json:"active"`
}

// DisplayName renders the user's name for audit payloads and logs.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
