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

// UpdateUserRole changes a user's role within their residential.
//
// Promoting to resident runs the assignment saga (claim residence, attach
// role, open contract); residenceID is required up front so the operation
// fails before any write. Demoting away from resident runs the wind-down
// saga (reset role, close contract, release residence). Changes between
// non-resident roles are a single role-row write.
func (s *Service) UpdateUserRole(ctx context.Context, userID id.UserID, newRole id.RoleName, residenceID *id.ResidenceID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if !newRole.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown role %q", string(newRole))
	}
	// Fail fast: the resident path cannot start without a target residence.
	if newRole.IsResident() && (residenceID == nil || residenceID.IsNil()) {
		return dErrors.New(dErrors.CodeValidation, "residence id is required to assign the resident role")
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

	oldRole := id.RoleName("")
	if role != nil {
		oldRole = role.Role
	}
	if oldRole == newRole && !newRole.IsResident() {
		return nil
	}

	switch {
	case newRole.IsResident():
		err = s.promoteToResident(ctx, user, role, newRole, *residenceID)
	case role != nil && role.Role.IsResident():
		err = s.demoteResident(ctx, user, role, newRole)
	default:
		err = s.changeRole(ctx, user, role, newRole)
	}
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, audit.ActionRoleUpdated, "user", userID.String(), audit.Data{
		audit.KeyResidentID: userID.String(),
		audit.KeyOldRole:    string(oldRole),
		audit.KeyNewRole:    string(newRole),
	})

	s.incrementOperation("update_user_role")
	s.logInfo(ctx, "user role updated",
		"user_id", userID.String(),
		"old_role", string(oldRole),
		"new_role", string(newRole),
	)
	return nil
}

// promoteToResident runs the assignment saga: claim the residence, save the
// resident role pointing at it, open a contract. The user's active flag is
// untouched; activation is EnableUser's concern.
func (s *Service) promoteToResident(ctx context.Context, user *models.User, role *models.ResidentialRole, newRole id.RoleName, residenceID id.ResidenceID) error {
	release, err := s.acquire(ctx, userKey(user.ID), residenceKey(residenceID))
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.contracts.FindActiveByResident(ctx, user.ID); err == nil {
		return dErrors.New(dErrors.CodeValidation, "user already holds an active contract")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active contract")
	}

	startDate := requestcontext.Now(ctx)

	if err := s.retryStep(ctx, stepClaimResidence, func() error {
		return s.residences.ClaimIfAvailable(ctx, residenceID, user.ID)
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

	if err := s.retryStep(ctx, stepAssignRole, func() error {
		if role == nil {
			role = &models.ResidentialRole{
				ID:            id.NewRoleID(),
				UserID:        user.ID,
				ResidentialID: user.ResidentialID,
			}
		}
		role.Role = newRole
		role.SetResidence(residenceID)
		return s.roles.Save(ctx, role)
	}); err != nil {
		return s.partialFailure(ctx, &PartialFailure{
			Operation: "UpdateUserRole",
			Completed: completed,
			Failed:    stepAssignRole,
			Cause:     err,
		}, "user", user.ID.String())
	}
	completed = append(completed, stepAssignRole)

	if err := s.retryStep(ctx, stepInsertContract, func() error {
		if _, findErr := s.contracts.FindActiveByResident(ctx, user.ID); findErr == nil {
			return nil
		} else if !errors.Is(findErr, sentinel.ErrNotFound) {
			return findErr
		}
		contract, buildErr := models.NewContract(id.NewContractID(), user.ID, residenceID, user.ResidentialID, startDate)
		if buildErr != nil {
			return buildErr
		}
		return s.contracts.Insert(ctx, contract)
	}); err != nil {
		return s.partialFailure(ctx, &PartialFailure{
			Operation: "UpdateUserRole",
			Completed: completed,
			Failed:    stepInsertContract,
			Cause:     err,
		}, "user", user.ID.String())
	}

	_, err = s.selfCheck(ctx, "UpdateUserRole", residenceID, user.ID, user.ResidentialID)
	return err
}

// demoteResident runs the wind-down saga: reset the role to its new name,
// close the contract, release the residence. The user stays active.
func (s *Service) demoteResident(ctx context.Context, user *models.User, role *models.ResidentialRole, newRole id.RoleName) error {
	// The user lock must be held before the contract read: the contract
	// decides the residence lock key, and reading it outside the lock races
	// with a concurrent enable.
	releaseUser, err := s.acquire(ctx, userKey(user.ID))
	if err != nil {
		return err
	}
	defer releaseUser()

	contract, err := s.contracts.FindActiveByResident(ctx, user.ID)
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

	if err := s.retryStep(ctx, stepResetRole, func() error {
		if resetErr := s.directory.ResetResidentialRole(ctx, user.ID); resetErr != nil && !errors.Is(resetErr, sentinel.ErrNotFound) {
			return resetErr
		}
		role.Role = newRole
		role.ClearResidence()
		return s.roles.Save(ctx, role)
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update role")
	}
	completed := []string{stepResetRole}

	if err := s.retryStep(ctx, stepCloseContract, func() error {
		_, closeErr := s.contracts.CloseActive(ctx, user.ID, requestcontext.Now(ctx))
		return closeErr
	}); err != nil {
		return s.partialFailure(ctx, &PartialFailure{
			Operation: "UpdateUserRole",
			Completed: completed,
			Failed:    stepCloseContract,
			Cause:     err,
		}, "user", user.ID.String())
	}
	completed = append(completed, stepCloseContract)

	if contract != nil {
		if err := s.retryStep(ctx, stepReleaseResidence, func() error {
			return s.residences.Release(ctx, contract.ResidenceID)
		}); err != nil {
			return s.partialFailure(ctx, &PartialFailure{
				Operation: "UpdateUserRole",
				Completed: completed,
				Failed:    stepReleaseResidence,
				Cause:     err,
			}, "user", user.ID.String())
		}
		if _, err := s.selfCheck(ctx, "UpdateUserRole", contract.ResidenceID, user.ID, user.ResidentialID); err != nil {
			return err
		}
	}
	return nil
}

// changeRole handles transitions between non-resident roles: one upsert.
func (s *Service) changeRole(ctx context.Context, user *models.User, role *models.ResidentialRole, newRole id.RoleName) error {
	release, err := s.acquire(ctx, userKey(user.ID))
	if err != nil {
		return err
	}
	defer release()

	if role == nil {
		role = &models.ResidentialRole{
			ID:            id.NewRoleID(),
			UserID:        user.ID,
			ResidentialID: user.ResidentialID,
		}
	}
	role.Role = newRole
	if err := s.retryStep(ctx, stepAssignRole, func() error {
		return s.roles.Save(ctx, role)
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update role")
	}
	return nil
}
