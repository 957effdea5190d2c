package service

import (
	"context"
	"errors"
	"time"

	"domio/internal/audit"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
	"domio/pkg/platform/sentinel"
	"domio/pkg/requestcontext"
)

// DisableUser deactivates a user and winds down any residency they hold:
// role reset first (reversible), then deactivation, then contract closure
// and occupancy release (both idempotent by filter).
func (s *Service) DisableUser(ctx context.Context, userID id.UserID) error {
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

	// Lock the user before reading the active contract: the contract decides
	// the residence lock key, and a contract read outside the lock can be
	// invalidated by a concurrent enable. Every operation that opens or
	// closes this user's contracts holds the user key, so the read below is
	// stable once we hold it.
	releaseUser, err := s.acquire(ctx, userKey(userID))
	if err != nil {
		return err
	}
	defer releaseUser()

	contract, err := s.contracts.FindActiveByResident(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active contract")
	}
	if contract != nil {
		releaseResidence, err := s.acquire(ctx, residenceKey(contract.ResidenceID))
		if err != nil {
			return err
		}
		defer releaseResidence()
	}

	role, err := s.roles.FindByUser(ctx, userID, user.ResidentialID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load role")
	}

	var completed []string

	// Step 1: reset the residential role when the user is a resident.
	if role != nil && role.Role.IsResident() {
		if err := s.retryStep(ctx, stepResetRole, func() error {
			return s.resetRole(ctx, userID, user.ResidentialID)
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset residential role")
		}
		completed = append(completed, stepResetRole)
	}

	// Step 2: deactivate.
	if err := s.retryStep(ctx, stepDeactivateUser, func() error {
		return s.users.SetActive(ctx, userID, false)
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate user")
	}
	completed = append(completed, stepDeactivateUser)

	// Step 3: close any active contract. Closing an already-closed contract
	// is a no-op by filter.
	if err := s.retryStep(ctx, stepCloseContract, func() error {
		_, closeErr := s.contracts.CloseActive(ctx, userID, requestcontext.Now(ctx))
		return closeErr
	}); err != nil {
		return s.partialFailure(ctx, &PartialFailure{
			Operation: "DisableUser",
			Completed: completed,
			Failed:    stepCloseContract,
			Cause:     err,
		}, "user", userID.String())
	}
	completed = append(completed, stepCloseContract)

	// Step 4: release the residence so its availability mirrors the closed
	// contract.
	if contract != nil {
		if err := s.retryStep(ctx, stepReleaseResidence, func() error {
			return s.residences.Release(ctx, contract.ResidenceID)
		}); err != nil {
			return s.partialFailure(ctx, &PartialFailure{
				Operation: "DisableUser",
				Completed: completed,
				Failed:    stepReleaseResidence,
				Cause:     err,
			}, "user", userID.String())
		}
	}

	s.recorder.Record(ctx, audit.ActionUserDisabled, "user", userID.String(), audit.Data{
		audit.KeyResidentID: userID.String(),
	})

	if contract != nil {
		if _, err := s.selfCheck(ctx, "DisableUser", contract.ResidenceID, userID, user.ResidentialID); err != nil {
			return err
		}
	}

	s.incrementOperation("disable_user")
	s.logInfo(ctx, "user disabled", "user_id", userID.String())
	return nil
}
