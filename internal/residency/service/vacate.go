package service

import (
	"context"
	"errors"
	"time"

	"domio/internal/audit"
	"domio/internal/residency/invariants"
	"domio/internal/residency/models"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
	"domio/pkg/platform/sentinel"
	"domio/pkg/requestcontext"
)

// VacateResidence ends a resident's occupancy of a residence.
//
// Step order, least destructive first:
//  1. reset the user's residential role (reversible)
//  2. deactivate the user
//  3. close the active contract (idempotent by filter)
//  4. clear the residence's occupancy
//
// A failure in steps 1-2 aborts with an ordinary error: no residence or
// contract state has changed. A failure from step 3 on returns
// *PartialFailure so the caller can run Repair.
func (s *Service) VacateResidence(ctx context.Context, residenceID id.ResidenceID, residentID id.UserID) (*models.Residence, error) {
	if residenceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "residence id is required")
	}
	if residentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "resident id is required")
	}
	defer s.observeSaga(time.Now())

	release, err := s.acquire(ctx, residenceKey(residenceID), userKey(residentID))
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
	if residence.ResidentID == nil || *residence.ResidentID != residentID {
		return nil, dErrors.New(dErrors.CodeValidation, "residence is not occupied by this resident")
	}

	contract, err := s.contracts.FindActiveByResident(ctx, residentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "resident has no active contract")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active contract")
	}
	if contract.ResidenceID != residenceID {
		return nil, dErrors.New(dErrors.CodeValidation, "active contract is for a different residence")
	}

	vacateDate := requestcontext.Now(ctx)

	// Step 1: reset the role assignment. Nothing irreversible yet.
	if err := s.retryStep(ctx, stepResetRole, func() error {
		return s.resetRole(ctx, residentID, residence.ResidentialID)
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset residential role")
	}

	// Step 2: deactivate the user.
	if err := s.retryStep(ctx, stepDeactivateUser, func() error {
		return s.users.SetActive(ctx, residentID, false)
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate user")
	}

	completed := []string{stepResetRole, stepDeactivateUser}

	// Step 3: close the contract. From here on a failure leaves committed
	// steps behind and must surface as a partial failure.
	if err := s.retryStep(ctx, stepCloseContract, func() error {
		_, closeErr := s.contracts.CloseActive(ctx, residentID, vacateDate)
		return closeErr
	}); err != nil {
		return nil, s.partialFailure(ctx, &PartialFailure{
			Operation: "VacateResidence",
			Completed: completed,
			Failed:    stepCloseContract,
			Cause:     err,
		}, "residence", residenceID.String())
	}
	completed = append(completed, stepCloseContract)

	// Step 4: clear occupancy so available == (resident_id == nil) holds in
	// the settled state.
	if err := s.retryStep(ctx, stepReleaseResidence, func() error {
		return s.residences.Release(ctx, residenceID)
	}); err != nil {
		return nil, s.partialFailure(ctx, &PartialFailure{
			Operation: "VacateResidence",
			Completed: completed,
			Failed:    stepReleaseResidence,
			Cause:     err,
		}, "residence", residenceID.String())
	}

	s.recorder.Record(ctx, audit.ActionResidenceVacated, "residence", residenceID.String(), audit.Data{
		audit.KeyResidenceName: residence.Name,
		audit.KeyResidentID:    residentID.String(),
		audit.KeyVacateDate:    vacateDate.Format(time.DateOnly),
	})

	refreshed, err := s.selfCheck(ctx, "VacateResidence", residenceID, residentID, residence.ResidentialID)
	if err != nil {
		return nil, err
	}

	s.incrementOperation("vacate_residence")
	s.logInfo(ctx, "residence vacated",
		"residence_id", residenceID.String(),
		"resident_id", residentID.String(),
	)
	return refreshed, nil
}

// resetRole invokes the identity system's role reset and detaches the role
// row from its residence. A missing role row is tolerated: there is nothing
// to reset.
func (s *Service) resetRole(ctx context.Context, userID id.UserID, residentialID id.ResidentialID) error {
	if err := s.directory.ResetResidentialRole(ctx, userID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	role, err := s.roles.FindByUser(ctx, userID, residentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}
	if role.ResidenceID == nil {
		return nil
	}
	return s.roles.SetResidence(ctx, role.ID, nil)
}

// selfCheck reloads the touched rows and verifies ResidenceConsistent. A
// violation after all writes succeeded means a concurrent or historical
// corruption; it is reported as a partial failure instead of a silent
// success.
func (s *Service) selfCheck(ctx context.Context, operation string, residenceID id.ResidenceID, userID id.UserID, residentialID id.ResidentialID) (*models.Residence, error) {
	residence, err := s.residences.FindByID(ctx, residenceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload residence")
	}

	contract, err := s.contracts.FindActiveByResident(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload contract")
	}

	role, err := s.roles.FindByUser(ctx, userID, residentialID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload role")
	}

	if !invariants.ResidenceConsistent(residence, contract, role) {
		return nil, s.partialFailure(ctx, &PartialFailure{
			Operation: operation,
			Completed: []string{"all"},
			Failed:    "consistency_check",
			Cause:     errors.New("post-write invariant check failed"),
		}, "residence", residenceID.String())
	}
	return residence, nil
}
