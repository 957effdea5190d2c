package service

import (
	"context"
	"errors"
	"time"

	"domio/internal/audit"
	"domio/internal/residency/models"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
	"domio/pkg/platform/sentinel"
	"domio/pkg/requestcontext"
)

// EnableUser reactivates a user. For residents this re-establishes a full
// residency: claim the residence, attach the role, open a contract, and
// only then flip the user active. The activation runs last so a user is
// never observable as active while mid-assignment.
//
// residenceID is required for residents and ignored for every other role.
func (s *Service) EnableUser(ctx context.Context, userID id.UserID, residenceID *id.ResidenceID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	defer s.observeSaga(time.Now())

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	role, err := s.roles.FindByUser(ctx, userID, user.ResidentialID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load role")
	}

	if role == nil || !role.Role.IsResident() {
		// Non-residents hold no residency state; enabling is a single write.
		release, err := s.acquire(ctx, userKey(userID))
		if err != nil {
			return err
		}
		defer release()

		if err := s.retryStep(ctx, stepActivateUser, func() error {
			return s.users.SetActive(ctx, userID, true)
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate user")
		}
		s.recorder.Record(ctx, audit.ActionUserEnabled, "user", userID.String(), audit.Data{
			audit.KeyResidentID: userID.String(),
		})
		s.incrementOperation("enable_user")
		s.logInfo(ctx, "user enabled", "user_id", userID.String())
		return nil
	}

	if residenceID == nil || residenceID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "residence id is required to enable a resident")
	}

	release, err := s.acquire(ctx, userKey(userID), residenceKey(*residenceID))
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.contracts.FindActiveByResident(ctx, userID); err == nil {
		return dErrors.New(dErrors.CodeValidation, "resident already holds an active contract")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active contract")
	}

	startDate := requestcontext.Now(ctx)

	// Step 1: claim the residence. The conditional write is the
	// serialization point: a concurrent claim loses with ErrConflict.
	if err := s.retryStep(ctx, stepClaimResidence, func() error {
		return s.residences.ClaimIfAvailable(ctx, *residenceID, userID)
	}); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeValidation, "residence is already occupied")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "residence not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim residence")
	}
	completed := []string{stepClaimResidence}

	// Step 2: point the role row at the claimed residence.
	if err := s.retryStep(ctx, stepAssignRole, func() error {
		return s.roles.SetResidence(ctx, role.ID, residenceID)
	}); err != nil {
		return s.partialFailure(ctx, &PartialFailure{
			Operation: "EnableUser",
			Completed: completed,
			Failed:    stepAssignRole,
			Cause:     err,
		}, "user", userID.String())
	}
	completed = append(completed, stepAssignRole)

	// Step 3: open the contract. Insertion is not idempotent by filter, so
	// the retry closure re-checks for a surviving row from an ambiguous
	// earlier attempt before inserting again.
	if err := s.retryStep(ctx, stepInsertContract, func() error {
		if _, findErr := s.contracts.FindActiveByResident(ctx, userID); findErr == nil {
			return nil
		} else if !errors.Is(findErr, sentinel.ErrNotFound) {
			return findErr
		}
		contract, buildErr := models.NewContract(id.NewContractID(), userID, *residenceID, user.ResidentialID, startDate)
		if buildErr != nil {
			return buildErr
		}
		return s.contracts.Insert(ctx, contract)
	}); err != nil {
		return s.partialFailure(ctx, &PartialFailure{
			Operation: "EnableUser",
			Completed: completed,
			Failed:    stepInsertContract,
			Cause:     err,
		}, "user", userID.String())
	}
	completed = append(completed, stepInsertContract)

	// Step 4: activate last.
	if err := s.retryStep(ctx, stepActivateUser, func() error {
		return s.users.SetActive(ctx, userID, true)
	}); err != nil {
		return s.partialFailure(ctx, &PartialFailure{
			Operation: "EnableUser",
			Completed: completed,
			Failed:    stepActivateUser,
			Cause:     err,
		}, "user", userID.String())
	}

	s.recorder.Record(ctx, audit.ActionUserEnabled, "user", userID.String(), audit.Data{
		audit.KeyResidentID: userID.String(),
		audit.KeyStartDate:  startDate.Format(time.DateOnly),
	})

	if _, err := s.selfCheck(ctx, "EnableUser", *residenceID, userID, user.ResidentialID); err != nil {
		return err
	}

	s.incrementOperation("enable_user")
	s.logInfo(ctx, "user enabled",
		"user_id", userID.String(),
		"residence_id", residenceID.String(),
	)
	return nil
}
