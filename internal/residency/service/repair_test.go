package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domio/internal/audit"
	"domio/internal/residency/models"
	"domio/internal/residency/service"
	"domio/internal/residency/store"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
	"domio/pkg/requestcontext"
)

// flakyResidenceStore fails Release while tripped, simulating a backend
// outage between saga steps.
type flakyResidenceStore struct {
	store.ResidenceStore
	failRelease atomic.Bool
}

func (s *flakyResidenceStore) Release(ctx context.Context, residenceID id.ResidenceID) error {
	if s.failRelease.Load() {
		return errors.New("backend unavailable")
	}
	return s.ResidenceStore.Release(ctx, residenceID)
}

// flakyContractStore fails CloseActive while tripped.
type flakyContractStore struct {
	store.ContractStore
	failClose atomic.Bool
}

func (s *flakyContractStore) CloseActive(ctx context.Context, residentID id.UserID, end time.Time) (bool, error) {
	if s.failClose.Load() {
		return false, errors.New("backend unavailable")
	}
	return s.ContractStore.CloseActive(ctx, residentID, end)
}

func TestPartialFailureAndRepair(t *testing.T) {
	now := time.Date(2024, 11, 12, 16, 0, 0, 0, time.UTC)

	t.Run("vacate surfaces a partial failure and repair converges", func(t *testing.T) {
		f := newFixture(t)
		flaky := &flakyResidenceStore{ResidenceStore: f.residences}
		svc := service.New(f.users, flaky, f.contracts, f.roles, f.directory, f.recorder, service.WithMaxRetries(0))
		user, residence, contract := f.seedResident(t, now.AddDate(0, -4, 0))
		ctx := f.testContext(now)

		flaky.failRelease.Store(true)
		_, err := svc.VacateResidence(ctx, residence.ID, user.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePartialFailure))

		var pf *service.PartialFailure
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, "VacateResidence", pf.Operation)
		assert.Equal(t, "release_residence", pf.Failed)
		assert.Contains(t, pf.Completed, "close_contract")

		// The committed prefix is visible: contract closed, user inactive,
		// but occupancy still dangling.
		closed, findErr := f.contracts.FindByID(ctx, contract.ID)
		require.NoError(t, findErr)
		assert.False(t, closed.Active)
		stale, findErr := f.residences.FindByID(ctx, residence.ID)
		require.NoError(t, findErr)
		require.NotNil(t, stale.ResidentID)

		entries := f.entriesFor(audit.ActionPartialFailure)
		require.Len(t, entries, 1)
		assert.Equal(t, "release_residence", entries[0].Data[audit.KeyFailedStep])

		// Backend recovers; repair releases the dangling occupancy.
		flaky.failRelease.Store(false)
		report, err := svc.Repair(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.Contains(t, report.Repaired, "release_residence")

		repaired, findErr := f.residences.FindByID(ctx, residence.ID)
		require.NoError(t, findErr)
		assert.True(t, repaired.Available)
		assert.Nil(t, repaired.ResidentID)

		repairedEntries := f.entriesFor(audit.ActionResidencyRepaired)
		require.Len(t, repairedEntries, 1)
		assert.Equal(t, user.ID.String(), repairedEntries[0].Data[audit.KeyResidentID])
	})

	t.Run("vacate failing at contract closure leaves an open contract repair closes", func(t *testing.T) {
		f := newFixture(t)
		flaky := &flakyContractStore{ContractStore: f.contracts}
		svc := service.New(f.users, f.residences, flaky, f.roles, f.directory, f.recorder, service.WithMaxRetries(0))
		user, residence, contract := f.seedResident(t, now.AddDate(0, -4, 0))
		ctx := f.testContext(now)

		flaky.failClose.Store(true)
		_, err := svc.VacateResidence(ctx, residence.ID, user.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePartialFailure))

		var pf *service.PartialFailure
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, "VacateResidence", pf.Operation)
		assert.Equal(t, "close_contract", pf.Failed)
		assert.ElementsMatch(t, []string{"reset_role", "deactivate_user"}, pf.Completed)

		// The user is already inactive but the contract is still open.
		inactive, findErr := f.users.FindByID(ctx, user.ID)
		require.NoError(t, findErr)
		assert.False(t, inactive.Active)
		open, findErr := f.contracts.FindByID(ctx, contract.ID)
		require.NoError(t, findErr)
		assert.True(t, open.Active)

		entries := f.entriesFor(audit.ActionPartialFailure)
		require.Len(t, entries, 1)
		assert.Equal(t, "close_contract", entries[0].Data[audit.KeyFailedStep])

		// Backend recovers; repair re-applies the closure and winds down the
		// rest of the residency.
		flaky.failClose.Store(false)
		report, err := svc.Repair(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.Contains(t, report.Repaired, "close_contract")
		assert.Contains(t, report.Repaired, "release_residence")

		closed, findErr := f.contracts.FindByID(ctx, contract.ID)
		require.NoError(t, findErr)
		assert.False(t, closed.Active)
		released, findErr := f.residences.FindByID(ctx, residence.ID)
		require.NoError(t, findErr)
		assert.True(t, released.Available)
		assert.Nil(t, released.ResidentID)
	})

	t.Run("repair closes a contract leaked on an inactive user", func(t *testing.T) {
		f := newFixture(t)
		user, residence, contract := f.seedResident(t, now.AddDate(0, -4, 0))
		ctx := f.testContext(now)

		// Simulate a disable that died right after deactivating the user.
		require.NoError(t, f.users.SetActive(ctx, user.ID, false))

		report, err := f.svc.Repair(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.Contains(t, report.Repaired, "close_contract")
		assert.Contains(t, report.Repaired, "release_residence")
		assert.Contains(t, report.Repaired, "reset_role")

		closed, err := f.contracts.FindByID(ctx, contract.ID)
		require.NoError(t, err)
		assert.False(t, closed.Active)

		released, err := f.residences.FindByID(ctx, residence.ID)
		require.NoError(t, err)
		assert.True(t, released.Available)

		role, err := f.roles.FindByUser(ctx, user.ID, f.residential)
		require.NoError(t, err)
		assert.Nil(t, role.ResidenceID)
	})

	t.Run("repair restores residence and role from the contract", func(t *testing.T) {
		f := newFixture(t)
		user, residence, _ := f.seedResident(t, now.AddDate(0, -4, 0))
		ctx := f.testContext(now)

		// Simulate an enable that opened the contract but lost the claim.
		require.NoError(t, f.residences.Release(ctx, residence.ID))
		role, err := f.roles.FindByUser(ctx, user.ID, f.residential)
		require.NoError(t, err)
		require.NoError(t, f.roles.SetResidence(ctx, role.ID, nil))

		report, err := f.svc.Repair(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.Contains(t, report.Repaired, "claim_residence")
		assert.Contains(t, report.Repaired, "assign_role")

		claimed, err := f.residences.FindByID(ctx, residence.ID)
		require.NoError(t, err)
		require.NotNil(t, claimed.ResidentID)
		assert.Equal(t, user.ID, *claimed.ResidentID)
	})

	t.Run("repair on a consistent user is a no-op", func(t *testing.T) {
		f := newFixture(t)
		user, _, _ := f.seedResident(t, now.AddDate(0, -4, 0))

		report, err := f.svc.Repair(f.testContext(now), user.ID)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.Empty(t, report.Repaired)
		assert.Empty(t, f.entriesFor(audit.ActionResidencyRepaired))
	})

	t.Run("repair refuses a residence held by another resident", func(t *testing.T) {
		f := newFixture(t)
		user, residence, _ := f.seedResident(t, now.AddDate(0, -4, 0))
		intruder := f.seedUser(t, id.RoleResident)
		ctx := f.testContext(now)

		require.NoError(t, f.residences.Release(ctx, residence.ID))
		require.NoError(t, f.residences.ClaimIfAvailable(ctx, residence.ID, intruder.ID))
		role, err := f.roles.FindByUser(ctx, user.ID, f.residential)
		require.NoError(t, err)
		require.NoError(t, f.roles.SetResidence(ctx, role.ID, nil))

		_, err = f.svc.Repair(ctx, user.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestRepairValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Repair(context.Background(), id.UserID{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = f.svc.Repair(requestcontext.WithTime(context.Background(), time.Now()), id.NewUserID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

// Sanity check that the contract store keeps at most one active contract per
// resident across a full disable/enable cycle.
func TestAtMostOneActiveContract(t *testing.T) {
	now := time.Date(2024, 12, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t)
	user, _, _ := f.seedResident(t, now.AddDate(-1, 0, 0))
	second := f.seedResidence(t, "G-700")
	ctx := f.testContext(now)

	require.NoError(t, f.svc.DisableUser(ctx, user.ID))
	require.NoError(t, f.svc.EnableUser(ctx, user.ID, &second.ID))

	contracts, err := f.contracts.ListByResident(ctx, user.ID)
	require.NoError(t, err)
	var active int
	for _, c := range contracts {
		if c.Active {
			active++
		}
	}
	assert.Equal(t, 1, active)

	stray, err := models.NewContract(id.NewContractID(), user.ID, second.ID, f.residential, now)
	require.NoError(t, err)
	require.Error(t, f.contracts.Insert(ctx, stray))
}
