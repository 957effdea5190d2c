package domain

import dErrors "domio/pkg/domain-errors"

// RoleName identifies the function a user holds within a residential.
// Invariant: the value must be one of the supported roles.
//
// Usage: construct via ParseRoleName at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type RoleName string

// Supported residential roles.
const (
	RoleAdmin    RoleName = "admin"
	RoleOwner    RoleName = "owner"
	RoleResident RoleName = "resident"
	RoleGuard    RoleName = "guard"
)

// validRoleNames is the single source of truth for valid roles.
var validRoleNames = map[RoleName]bool{
	RoleAdmin:    true,
	RoleOwner:    true,
	RoleResident: true,
	RoleGuard:    true,
}

// ParseRoleName constructs a RoleName from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRoleName(s string) (RoleName, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := RoleName(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r RoleName) IsValid() bool {
	return validRoleNames[r]
}

// IsResident reports whether this role carries an occupancy assignment.
// Only resident roles may reference a residence on their role row.
func (r RoleName) IsResident() bool {
	return r == RoleResident
}

// String returns the string representation of the role.
func (r RoleName) String() string {
	return string(r)
}
