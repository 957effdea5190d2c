package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domio/internal/audit"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
)

func TestVacateResidence(t *testing.T) {
	vacateDate := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("full wind-down", func(t *testing.T) {
		f := newFixture(t)
		user, residence, contract := f.seedResident(t, vacateDate.AddDate(-1, 0, 0))
		ctx := f.testContext(vacateDate)

		result, err := f.svc.VacateResidence(ctx, residence.ID, user.ID)
		require.NoError(t, err)

		assert.True(t, result.Available)
		assert.Nil(t, result.ResidentID)

		refreshedUser, err := f.users.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, refreshedUser.Active)

		closed, err := f.contracts.FindByID(ctx, contract.ID)
		require.NoError(t, err)
		assert.False(t, closed.Active)
		require.NotNil(t, closed.EndDate)
		assert.Equal(t, vacateDate, *closed.EndDate)

		role, err := f.roles.FindByUser(ctx, user.ID, f.residential)
		require.NoError(t, err)
		assert.Nil(t, role.ResidenceID)

		assert.Equal(t, 1, f.directory.resetCount())

		entries := f.entriesFor(audit.ActionResidenceVacated)
		require.Len(t, entries, 1)
		assert.Equal(t, "residence", entries[0].Entity)
		assert.Equal(t, residence.ID.String(), entries[0].EntityID)
		assert.Equal(t, residence.Name, entries[0].Data[audit.KeyResidenceName])
		assert.Equal(t, user.ID.String(), entries[0].Data[audit.KeyResidentID])
		assert.Equal(t, "2024-06-01", entries[0].Data[audit.KeyVacateDate])
	})

	t.Run("second vacate is rejected without side effects", func(t *testing.T) {
		f := newFixture(t)
		user, residence, _ := f.seedResident(t, vacateDate.AddDate(-1, 0, 0))
		ctx := f.testContext(vacateDate)

		_, err := f.svc.VacateResidence(ctx, residence.ID, user.ID)
		require.NoError(t, err)

		_, err = f.svc.VacateResidence(ctx, residence.ID, user.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		entries := f.entriesFor(audit.ActionResidenceVacated)
		assert.Len(t, entries, 1)
		assert.Equal(t, 1, f.directory.resetCount())
	})

	t.Run("rejects a resident who does not occupy the residence", func(t *testing.T) {
		f := newFixture(t)
		_, residence, _ := f.seedResident(t, vacateDate.AddDate(-1, 0, 0))
		ctx := f.testContext(vacateDate)

		_, err := f.svc.VacateResidence(ctx, residence.ID, id.NewUserID())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown residence", func(t *testing.T) {
		f := newFixture(t)
		user, _, _ := f.seedResident(t, vacateDate.AddDate(-1, 0, 0))

		_, err := f.svc.VacateResidence(context.Background(), id.NewResidenceID(), user.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("missing identifiers", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.VacateResidence(context.Background(), id.ResidenceID{}, id.NewUserID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = f.svc.VacateResidence(context.Background(), id.NewResidenceID(), id.UserID{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
