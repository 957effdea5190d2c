package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
)

func TestResidenceTransitions(t *testing.T) {
	t.Run("new residence is available and unoccupied", func(t *testing.T) {
		r, err := NewResidence(id.NewResidenceID(), id.NewResidentialID(), ResidenceApartment, "Tower A 101", "")
		require.NoError(t, err)
		assert.True(t, r.Available)
		assert.False(t, r.Occupied())
		require.NoError(t, r.CanAssign())
	})

	t.Run("assignment occupies and closes availability", func(t *testing.T) {
		r, err := NewResidence(id.NewResidenceID(), id.NewResidentialID(), ResidenceApartment, "Tower A 101", "")
		require.NoError(t, err)

		userID := id.NewUserID()
		r.AssignTo(userID)
		assert.False(t, r.Available)
		require.NotNil(t, r.ResidentID)
		assert.Equal(t, userID, *r.ResidentID)

		err = r.CanAssign()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("clearing the occupant is idempotent", func(t *testing.T) {
		r, err := NewResidence(id.NewResidenceID(), id.NewResidentialID(), ResidenceHouse, "Casa 7", "")
		require.NoError(t, err)
		r.AssignTo(id.NewUserID())

		r.ClearOccupant()
		r.ClearOccupant()
		assert.True(t, r.Available)
		assert.Nil(t, r.ResidentID)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewResidence(id.NewResidenceID(), id.NewResidentialID(), ResidenceApartment, "", "")
		require.Error(t, err)
	})
}

func TestContractClose(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("close sets end date and deactivates", func(t *testing.T) {
		c, err := NewContract(id.NewContractID(), id.NewUserID(), id.NewResidenceID(), id.NewResidentialID(), start)
		require.NoError(t, err)
		require.True(t, c.IsActive())

		c.Close(end)
		assert.False(t, c.IsActive())
		require.NotNil(t, c.EndDate)
		assert.Equal(t, end, *c.EndDate)
	})

	t.Run("closing an already-closed contract keeps the original end date", func(t *testing.T) {
		c, err := NewContract(id.NewContractID(), id.NewUserID(), id.NewResidenceID(), id.NewResidentialID(), start)
		require.NoError(t, err)
		c.Close(end)

		later := end.AddDate(0, 1, 0)
		c.Close(later)
		assert.Equal(t, end, *c.EndDate)
	})

	t.Run("rejects nil resident and zero start", func(t *testing.T) {
		_, err := NewContract(id.NewContractID(), id.UserID{}, id.NewResidenceID(), id.NewResidentialID(), start)
		require.Error(t, err)
		_, err = NewContract(id.NewContractID(), id.NewUserID(), id.NewResidenceID(), id.NewResidentialID(), time.Time{})
		require.Error(t, err)
	})
}

func TestRoleResidencePointer(t *testing.T) {
	role := &ResidentialRole{
		ID:            id.NewRoleID(),
		UserID:        id.NewUserID(),
		ResidentialID: id.NewResidentialID(),
		Role:          id.RoleResident,
	}

	residenceID := id.NewResidenceID()
	role.SetResidence(residenceID)
	require.NotNil(t, role.ResidenceID)
	assert.Equal(t, residenceID, *role.ResidenceID)

	role.ClearResidence()
	role.ClearResidence()
	assert.Nil(t, role.ResidenceID)
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ana Silva", (&User{FirstName: "Ana", LastName: "Silva"}).DisplayName())
	assert.Equal(t, "Ana", (&User{FirstName: "Ana"}).DisplayName())
	assert.Equal(t, "Silva", (&User{LastName: "Silva"}).DisplayName())
}
