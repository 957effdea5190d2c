package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"domio/internal/audit"
	"domio/internal/residency/invariants"
	"domio/internal/residency/models"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
	"domio/pkg/platform/sentinel"
	"domio/pkg/requestcontext"
)

// RepairReport describes what a repair pass found and fixed.
type RepairReport struct {
	UserID     id.UserID `json:"user_id"`
	Repaired   []string  `json:"repaired"`
	Consistent bool      `json:"consistent"`
}

// Repair converges a user's residency state after a partial failure.
//
// The active contract is the source of truth. When the user is active and
// holds one, the residence and role rows are re-pointed at it. Otherwise
// every leftover is wound down: a leaked active contract on an inactive
// user is closed, dangling occupancies are released, and the role row is
// detached. Every write it issues is idempotent by filter, so a repair pass
// interrupted mid-way can simply be re-run.
func (s *Service) Repair(ctx context.Context, userID id.UserID) (*RepairReport, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	defer s.observeSaga(time.Now())

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	releaseUser, err := s.acquire(ctx, userKey(userID))
	if err != nil {
		return nil, err
	}
	defer releaseUser()

	// Load the three residency views concurrently; each is an independent
	// single-row (or single-list) read.
	var (
		contract *models.Contract
		role     *models.ResidentialRole
		occupied []*models.Residence
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.contracts.FindActiveByResident(gctx, userID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		contract = c
		return nil
	})
	g.Go(func() error {
		r, err := s.roles.FindByUser(gctx, userID, user.ResidentialID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		role = r
		return nil
	})
	g.Go(func() error {
		all, err := s.residences.ListByResidential(gctx, user.ResidentialID)
		if err != nil {
			return err
		}
		for _, r := range all {
			if r.ResidentID != nil && *r.ResidentID == userID {
				occupied = append(occupied, r)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load residency state")
	}

	// Lock every residence the repair may touch.
	residenceKeys := make([]string, 0, len(occupied)+1)
	seen := map[id.ResidenceID]bool{}
	for _, r := range occupied {
		residenceKeys = append(residenceKeys, residenceKey(r.ID))
		seen[r.ID] = true
	}
	if contract != nil && !seen[contract.ResidenceID] {
		residenceKeys = append(residenceKeys, residenceKey(contract.ResidenceID))
	}
	if len(residenceKeys) > 0 {
		releaseResidences, err := s.acquire(ctx, residenceKeys...)
		if err != nil {
			return nil, err
		}
		defer releaseResidences()
	}

	var repaired []string
	if contract != nil && user.Active {
		repaired, err = s.repairForward(ctx, user, contract, role, occupied)
	} else {
		repaired, err = s.repairBackward(ctx, user, contract, role, occupied)
	}
	if err != nil {
		return nil, err
	}

	report := &RepairReport{UserID: userID, Repaired: repaired}

	// Re-read and verify the settled state.
	checkResidence := s.repairTarget(contract, role, occupied)
	if checkResidence != nil {
		refreshed, err := s.residences.FindByID(ctx, checkResidence.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload residence")
		}
		finalContract, err := s.contracts.FindActiveByResident(ctx, userID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload contract")
		}
		finalRole, err := s.roles.FindByUser(ctx, userID, user.ResidentialID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload role")
		}
		report.Consistent = invariants.ResidenceConsistent(refreshed, finalContract, finalRole)
	} else {
		report.Consistent = true
	}

	if len(repaired) > 0 {
		s.recorder.Record(ctx, audit.ActionResidencyRepaired, "user", userID.String(), audit.Data{
			audit.KeyResidentID:    userID.String(),
			audit.KeyRepairedSteps: strings.Join(repaired, ","),
		})
		if s.metrics != nil {
			s.metrics.IncrementRepair()
		}
	}

	s.incrementOperation("repair")
	s.logInfo(ctx, "residency repaired",
		"user_id", userID.String(),
		"repaired", strings.Join(repaired, ","),
		"consistent", report.Consistent,
	)
	return report, nil
}

// repairForward makes residence and role agree with the active contract.
func (s *Service) repairForward(ctx context.Context, user *models.User, contract *models.Contract, role *models.ResidentialRole, occupied []*models.Residence) ([]string, error) {
	var repaired []string

	// Release any residence occupied by the user other than the contract's.
	for _, r := range occupied {
		if r.ID == contract.ResidenceID {
			continue
		}
		if err := s.residences.Release(ctx, r.ID); err != nil {
			return repaired, dErrors.Wrap(err, dErrors.CodeInternal, "failed to release stray occupancy")
		}
		repaired = append(repaired, stepReleaseResidence)
	}

	residence, err := s.residences.FindByID(ctx, contract.ResidenceID)
	if err != nil {
		return repaired, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contract residence")
	}
	if residence.ResidentID == nil {
		if err := s.residences.ClaimIfAvailable(ctx, contract.ResidenceID, user.ID); err != nil {
			return repaired, dErrors.Wrap(err, dErrors.CodeInternal, "failed to re-claim residence")
		}
		repaired = append(repaired, stepClaimResidence)
	} else if *residence.ResidentID != user.ID {
		// Someone else holds the unit the contract names. That cannot be
		// repaired automatically without evicting them.
		return repaired, dErrors.New(dErrors.CodeInvariantViolation, "contract residence is occupied by a different resident")
	}

	if role == nil {
		role = &models.ResidentialRole{
			ID:            id.NewRoleID(),
			UserID:        user.ID,
			ResidentialID: user.ResidentialID,
			Role:          id.RoleResident,
		}
		role.SetResidence(contract.ResidenceID)
		if err := s.roles.Save(ctx, role); err != nil {
			return repaired, dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore role")
		}
		repaired = append(repaired, stepAssignRole)
	} else if role.ResidenceID == nil || *role.ResidenceID != contract.ResidenceID {
		rid := contract.ResidenceID
		if err := s.roles.SetResidence(ctx, role.ID, &rid); err != nil {
			return repaired, dErrors.Wrap(err, dErrors.CodeInternal, "failed to re-point role")
		}
		repaired = append(repaired, stepAssignRole)
	}
	return repaired, nil
}

// repairBackward winds down every residency leftover for a user with no
// valid residency: a leaked contract, dangling occupancies, an attached
// role row.
func (s *Service) repairBackward(ctx context.Context, user *models.User, contract *models.Contract, role *models.ResidentialRole, occupied []*models.Residence) ([]string, error) {
	var repaired []string

	if contract != nil {
		closed, err := s.contracts.CloseActive(ctx, user.ID, requestcontext.Now(ctx))
		if err != nil {
			return repaired, dErrors.Wrap(err, dErrors.CodeInternal, "failed to close leaked contract")
		}
		if closed {
			repaired = append(repaired, stepCloseContract)
		}
	}

	for _, r := range occupied {
		if err := s.residences.Release(ctx, r.ID); err != nil {
			return repaired, dErrors.Wrap(err, dErrors.CodeInternal, "failed to release residence")
		}
		repaired = append(repaired, stepReleaseResidence)
	}

	if role != nil && role.ResidenceID != nil {
		if err := s.roles.SetResidence(ctx, role.ID, nil); err != nil {
			return repaired, dErrors.Wrap(err, dErrors.CodeInternal, "failed to detach role")
		}
		repaired = append(repaired, stepResetRole)
	}
	return repaired, nil
}

// repairTarget picks the residence whose settled state the final invariant
// check verifies.
func (s *Service) repairTarget(contract *models.Contract, role *models.ResidentialRole, occupied []*models.Residence) *models.Residence {
	if contract != nil {
		return &models.Residence{ID: contract.ResidenceID}
	}
	if len(occupied) > 0 {
		return occupied[0]
	}
	if role != nil && role.ResidenceID != nil {
		return &models.Residence{ID: *role.ResidenceID}
	}
	return nil
}
