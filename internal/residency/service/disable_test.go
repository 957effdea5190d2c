package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domio/internal/audit"
	"domio/internal/residency/service"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
)

func TestDisableUser(t *testing.T) {
	now := time.Date(2024, 8, 20, 12, 0, 0, 0, time.UTC)

	t.Run("resident wind-down", func(t *testing.T) {
		f := newFixture(t)
		user, residence, contract := f.seedResident(t, now.AddDate(0, -6, 0))
		ctx := f.testContext(now)

		require.NoError(t, f.svc.DisableUser(ctx, user.ID))

		refreshedUser, err := f.users.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, refreshedUser.Active)

		closed, err := f.contracts.FindByID(ctx, contract.ID)
		require.NoError(t, err)
		assert.False(t, closed.Active)
		require.NotNil(t, closed.EndDate)
		assert.Equal(t, now, *closed.EndDate)

		released, err := f.residences.FindByID(ctx, residence.ID)
		require.NoError(t, err)
		assert.True(t, released.Available)
		assert.Nil(t, released.ResidentID)

		role, err := f.roles.FindByUser(ctx, user.ID, f.residential)
		require.NoError(t, err)
		assert.Nil(t, role.ResidenceID)

		assert.Equal(t, 1, f.directory.resetCount())
		assert.Len(t, f.entriesFor(audit.ActionUserDisabled), 1)
	})

	t.Run("non-resident is a single deactivation", func(t *testing.T) {
		f := newFixture(t)
		user := f.seedUser(t, id.RoleOwner)
		ctx := f.testContext(now)

		require.NoError(t, f.svc.DisableUser(ctx, user.ID))

		refreshed, err := f.users.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, refreshed.Active)

		assert.Equal(t, 0, f.directory.resetCount())
		assert.Len(t, f.entriesFor(audit.ActionUserDisabled), 1)
	})

	t.Run("disabling twice converges", func(t *testing.T) {
		f := newFixture(t)
		user, residence, _ := f.seedResident(t, now.AddDate(0, -6, 0))
		ctx := f.testContext(now)

		require.NoError(t, f.svc.DisableUser(ctx, user.ID))
		require.NoError(t, f.svc.DisableUser(ctx, user.ID))

		released, err := f.residences.FindByID(ctx, residence.ID)
		require.NoError(t, err)
		assert.True(t, released.Available)

		assert.Len(t, f.entriesFor(audit.ActionUserDisabled), 2)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.DisableUser(context.Background(), id.NewUserID())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("partial failure reports only the steps that ran", func(t *testing.T) {
		f := newFixture(t)
		flaky := &flakyContractStore{ContractStore: f.contracts}
		svc := service.New(f.users, f.residences, flaky, f.roles, f.directory, f.recorder, service.WithMaxRetries(0))
		user := f.seedUser(t, id.RoleOwner)
		ctx := f.testContext(now)

		flaky.failClose.Store(true)
		err := svc.DisableUser(ctx, user.ID)
		require.Error(t, err)

		// No role reset ran for a non-resident, so none may be reported.
		var pf *service.PartialFailure
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, "DisableUser", pf.Operation)
		assert.Equal(t, "close_contract", pf.Failed)
		assert.Equal(t, []string{"deactivate_user"}, pf.Completed)
	})
}
