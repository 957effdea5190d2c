// Package invariants holds the pure consistency predicates over the four
// collaborating entities. No I/O: callers fetch the rows, these functions
// judge them.
//
// The orchestrator uses them as a post-write self-check; tests use them to
// assert post-conditions after every lifecycle operation.
package invariants

import (
	"domio/internal/residency/models"
)

// ResidenceConsistent reports whether a residence, the resident's active
// contract (nil when none), and the resident's role row (nil when none)
// agree with each other.
//
// For an occupied residence R with resident U this means: exactly one active
// contract (U, R) exists and U's role row references R. For an unoccupied
// residence it means no active contract references R.
func ResidenceConsistent(residence *models.Residence, contract *models.Contract, role *models.ResidentialRole) bool {
	if residence == nil {
		return false
	}

	// available must mirror occupancy in every settled state
	if residence.Available == residence.Occupied() {
		return false
	}

	if !residence.Occupied() {
		// no active contract may still point at this residence
		if contract != nil && contract.IsActive() && contract.ResidenceID == residence.ID {
			return false
		}
		return true
	}

	if contract == nil || !contract.IsActive() {
		return false
	}
	if contract.ResidentID != *residence.ResidentID || contract.ResidenceID != residence.ID {
		return false
	}
	return RoleMatchesContract(role, contract)
}

// AtMostOneActiveContract reports whether a resident's contract history obeys
// the one-active-contract rule.
func AtMostOneActiveContract(contracts []*models.Contract) bool {
	active := 0
	for _, c := range contracts {
		if c != nil && c.IsActive() {
			active++
		}
	}
	return active <= 1
}

// RoleMatchesContract reports whether a role row's residence reference agrees
// with the user's active contract (nil when the user holds none).
func RoleMatchesContract(role *models.ResidentialRole, contract *models.Contract) bool {
	if contract != nil && !contract.IsActive() {
		contract = nil
	}
	if role == nil {
		// a missing role row is consistent only with no active contract
		return contract == nil
	}
	if contract == nil {
		return role.ResidenceID == nil
	}
	return role.ResidenceID != nil && *role.ResidenceID == contract.ResidenceID
}
