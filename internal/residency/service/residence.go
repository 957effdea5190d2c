package service

import (
	"context"
	"errors"

	"domio/internal/audit"
	"domio/internal/residency/models"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
	"domio/pkg/platform/sentinel"
)

// CreateResidenceInput carries the caller-editable residence fields.
type CreateResidenceInput struct {
	ResidentialID id.ResidentialID
	Type          models.ResidenceType
	Name          string
	Description   string
}

// CreateResidence registers a new unit. New residences start available and
// unoccupied; occupancy is established only through the lifecycle sagas.
func (s *Service) CreateResidence(ctx context.Context, in CreateResidenceInput) (*models.Residence, error) {
	if in.ResidentialID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "residential id is required")
	}

	residence, err := models.NewResidence(id.NewResidenceID(), in.ResidentialID, in.Type, in.Name, in.Description)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid residence")
	}

	if err := s.residences.Insert(ctx, residence); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a residence with this name already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create residence")
	}

	s.recorder.Record(ctx, audit.ActionResidenceCreated, "residence", residence.ID.String(), audit.Data{
		audit.KeyNewName: residence.Name,
		audit.KeyNewType: string(residence.Type),
	})

	s.incrementOperation("create_residence")
	s.logInfo(ctx, "residence created",
		"residence_id", residence.ID.String(),
		"name", residence.Name,
	)
	return residence, nil
}

// UpdateResidenceInput carries the mutable residence fields. Nil fields are
// left unchanged.
type UpdateResidenceInput struct {
	Name        *string
	Type        *models.ResidenceType
	Description *string
}

// UpdateResidence edits a residence's descriptive fields. Occupancy and
// availability are never touched here. The audit entry records before and
// after values for every changed field.
func (s *Service) UpdateResidence(ctx context.Context, residenceID id.ResidenceID, in UpdateResidenceInput) (*models.Residence, error) {
	if residenceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "residence id is required")
	}

	release, err := s.acquire(ctx, residenceKey(residenceID))
	if err != nil {
		return nil, err
	}
	defer release()

	residence, err := s.residences.FindByID(ctx, residenceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "residence not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load residence")
	}

	payload := audit.Data{
		audit.KeyOldName: residence.Name,
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "residence name cannot be empty")
		}
		if len(*in.Name) > 128 {
			return nil, dErrors.New(dErrors.CodeValidation, "residence name must be 128 characters or less")
		}
		residence.Name = *in.Name
	}
	payload[audit.KeyNewName] = residence.Name
	if in.Type != nil {
		payload[audit.KeyOldType] = string(residence.Type)
		residence.Type = *in.Type
		payload[audit.KeyNewType] = string(residence.Type)
	}
	if in.Description != nil {
		payload[audit.KeyOldDesc] = residence.Description
		residence.Description = *in.Description
		payload[audit.KeyNewDesc] = residence.Description
	}

	if err := s.residences.Update(ctx, residence); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a residence with this name already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update residence")
	}

	s.recorder.Record(ctx, audit.ActionResidenceUpdated, "residence", residenceID.String(), payload)

	s.incrementOperation("update_residence")
	s.logInfo(ctx, "residence updated", "residence_id", residenceID.String())
	return residence, nil
}

// DeleteResidence removes an unoccupied unit. Occupied residences must be
// vacated first; deleting one would orphan its contract and role rows.
func (s *Service) DeleteResidence(ctx context.Context, residenceID id.ResidenceID) error {
	if residenceID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "residence id is required")
	}

	release, err := s.acquire(ctx, residenceKey(residenceID))
	if err != nil {
		return err
	}
	defer release()

	residence, err := s.residences.FindByID(ctx, residenceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "residence not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load residence")
	}
	if residence.Occupied() {
		return dErrors.New(dErrors.CodeValidation, "residence is occupied and cannot be deleted")
	}

	if err := s.residences.Delete(ctx, residenceID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete residence")
	}

	s.recorder.Record(ctx, audit.ActionResidenceDeleted, "residence", residenceID.String(), audit.Data{
		audit.KeyOldName: residence.Name,
		audit.KeyOldType: string(residence.Type),
	})

	s.incrementOperation("delete_residence")
	s.logInfo(ctx, "residence deleted",
		"residence_id", residenceID.String(),
		"name", residence.Name,
	)
	return nil
}
