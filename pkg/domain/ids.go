package domain

import (
	"github.com/google/uuid"

	dErrors "domio/pkg/domain-errors"
)

// Typed UUID identifiers for the core entities. Distinct types make
// cross-entity assignment a compile error; construct via the Parse helpers at
// trust boundaries so invalid input is rejected before it reaches a store.
type (
	UserID        uuid.UUID
	ResidenceID   uuid.UUID
	ContractID    uuid.UUID
	ResidentialID uuid.UUID
	RoleID        uuid.UUID
)

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewResidenceID returns a fresh random residence ID.
func NewResidenceID() ResidenceID { return ResidenceID(uuid.New()) }

// NewContractID returns a fresh random contract ID.
func NewContractID() ContractID { return ContractID(uuid.New()) }

// NewResidentialID returns a fresh random residential ID.
func NewResidentialID() ResidentialID { return ResidentialID(uuid.New()) }

// NewRoleID returns a fresh random role-assignment ID.
func NewRoleID() RoleID { return RoleID(uuid.New()) }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ResidenceID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ContractID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ResidentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RoleID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id ResidenceID) String() string   { return uuid.UUID(id).String() }
func (id ContractID) String() string    { return uuid.UUID(id).String() }
func (id ResidentialID) String() string { return uuid.UUID(id).String() }
func (id RoleID) String() string        { return uuid.UUID(id).String() }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be the nil UUID")
	}
	return u, nil
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseResidenceID constructs a ResidenceID from external input.
func ParseResidenceID(s string) (ResidenceID, error) {
	u, err := parseUUID(s, "residence id")
	return ResidenceID(u), err
}

// ParseContractID constructs a ContractID from external input.
func ParseContractID(s string) (ContractID, error) {
	u, err := parseUUID(s, "contract id")
	return ContractID(u), err
}

// ParseResidentialID constructs a ResidentialID from external input.
func ParseResidentialID(s string) (ResidentialID, error) {
	u, err := parseUUID(s, "residential id")
	return ResidentialID(u), err
}

// ParseRoleID constructs a RoleID from external input.
func ParseRoleID(s string) (RoleID, error) {
	u, err := parseUUID(s, "role id")
	return RoleID(u), err
}
