package handler

import (
	"strings"

	"domio/internal/residency/models"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
)

// VacateRequest is the HTTP request body for POST /residency/vacate.
type VacateRequest struct {
	ResidenceID string `json:"residence_id"`
	ResidentID  string `json:"resident_id"`

	parsedResidenceID id.ResidenceID
	parsedResidentID  id.UserID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VacateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	residenceID, err := id.ParseResidenceID(strings.TrimSpace(r.ResidenceID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "residence_id is invalid")
	}
	r.parsedResidenceID = residenceID

	residentID, err := id.ParseUserID(strings.TrimSpace(r.ResidentID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "resident_id is invalid")
	}
	r.parsedResidentID = residentID
	return nil
}

// ParsedResidenceID returns the validated residence id.
func (r *VacateRequest) ParsedResidenceID() id.ResidenceID { return r.parsedResidenceID }

// ParsedResidentID returns the validated resident id.
func (r *VacateRequest) ParsedResidentID() id.UserID { return r.parsedResidentID }

// RepairRequest is the HTTP request body for POST /residency/repair.
type RepairRequest struct {
	UserID string `json:"user_id"`

	parsedUserID id.UserID
}

func (r *RepairRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	userID, err := id.ParseUserID(strings.TrimSpace(r.UserID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "user_id is invalid")
	}
	r.parsedUserID = userID
	return nil
}

// ParsedUserID returns the validated user id.
func (r *RepairRequest) ParsedUserID() id.UserID { return r.parsedUserID }

// EnableRequest is the HTTP request body for POST /users/{userID}/enable.
// residence_id is required when the target user is a resident.
type EnableRequest struct {
	ResidenceID string `json:"residence_id"`

	parsedResidenceID *id.ResidenceID
}

func (r *EnableRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ResidenceID = strings.TrimSpace(r.ResidenceID)
	if r.ResidenceID == "" {
		return nil
	}
	residenceID, err := id.ParseResidenceID(r.ResidenceID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "residence_id is invalid")
	}
	r.parsedResidenceID = &residenceID
	return nil
}

// ParsedResidenceID returns the validated residence id, or nil when absent.
func (r *EnableRequest) ParsedResidenceID() *id.ResidenceID { return r.parsedResidenceID }

// UpdateRoleRequest is the HTTP request body for PUT /users/{userID}/role.
type UpdateRoleRequest struct {
	Role        string `json:"role"`
	ResidenceID string `json:"residence_id"`

	parsedRole        id.RoleName
	parsedResidenceID *id.ResidenceID
}

func (r *UpdateRoleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	role, err := id.ParseRoleName(strings.TrimSpace(r.Role))
	if err != nil {
		return err
	}
	r.parsedRole = role

	r.ResidenceID = strings.TrimSpace(r.ResidenceID)
	if r.ResidenceID != "" {
		residenceID, err := id.ParseResidenceID(r.ResidenceID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "residence_id is invalid")
		}
		r.parsedResidenceID = &residenceID
	}
	return nil
}

// ParsedRole returns the validated role name.
func (r *UpdateRoleRequest) ParsedRole() id.RoleName { return r.parsedRole }

// ParsedResidenceID returns the validated residence id, or nil when absent.
func (r *UpdateRoleRequest) ParsedResidenceID() *id.ResidenceID { return r.parsedResidenceID }

// validResidenceTypes is the allowlist for the type field.
var validResidenceTypes = map[models.ResidenceType]bool{
	models.ResidenceApartment: true,
	models.ResidenceHouse:     true,
	models.ResidenceParking:   true,
	models.ResidenceStorage:   true,
}

// CreateResidenceRequest is the HTTP request body for POST /residences.
type CreateResidenceRequest struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`

	parsedType models.ResidenceType
}

func (r *CreateResidenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 128 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 128 characters")
	}
	if len(r.Description) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "description must be at most 1024 characters")
	}

	rtype := models.ResidenceType(strings.TrimSpace(r.Type))
	if !validResidenceTypes[rtype] {
		return dErrors.New(dErrors.CodeValidation, "type must be one of apartment, house, parking, storage")
	}
	r.parsedType = rtype
	return nil
}

// ParsedType returns the validated residence type.
func (r *CreateResidenceRequest) ParsedType() models.ResidenceType { return r.parsedType }

// UpdateResidenceRequest is the HTTP request body for PUT /residences/{residenceID}.
// Absent fields are left unchanged.
type UpdateResidenceRequest struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Description *string `json:"description"`

	parsedType *models.ResidenceType
}

func (r *UpdateResidenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Name == nil && r.Type == nil && r.Description == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}

	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		if trimmed == "" {
			return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
		}
		if len(trimmed) > 128 {
			return dErrors.New(dErrors.CodeValidation, "name must be at most 128 characters")
		}
		r.Name = &trimmed
	}
	if r.Description != nil && len(*r.Description) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "description must be at most 1024 characters")
	}
	if r.Type != nil {
		rtype := models.ResidenceType(strings.TrimSpace(*r.Type))
		if !validResidenceTypes[rtype] {
			return dErrors.New(dErrors.CodeValidation, "type must be one of apartment, house, parking, storage")
		}
		r.parsedType = &rtype
	}
	return nil
}

// ParsedType returns the validated residence type, or nil when absent.
func (r *UpdateResidenceRequest) ParsedType() *models.ResidenceType { return r.parsedType }
