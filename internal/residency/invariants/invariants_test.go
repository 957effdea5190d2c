package invariants

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"domio/internal/residency/models"
	id "domio/pkg/domain"
)

func activeContract(residentID id.UserID, residenceID id.ResidenceID) *models.Contract {
	return &models.Contract{
		ID:          id.NewContractID(),
		ResidentID:  residentID,
		ResidenceID: residenceID,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:      true,
	}
}

func residentRole(userID id.UserID, residenceID *id.ResidenceID) *models.ResidentialRole {
	return &models.ResidentialRole{
		ID:          id.NewRoleID(),
		UserID:      userID,
		Role:        id.RoleResident,
		ResidenceID: residenceID,
	}
}

func TestResidenceConsistent(t *testing.T) {
	userID := id.NewUserID()
	residenceID := id.NewResidenceID()

	occupied := &models.Residence{ID: residenceID, Name: "Tower A 101", Available: false, ResidentID: &userID}
	vacant := &models.Residence{ID: residenceID, Name: "Tower A 101", Available: true}

	t.Run("occupied residence with matching contract and role", func(t *testing.T) {
		contract := activeContract(userID, residenceID)
		role := residentRole(userID, &residenceID)
		assert.True(t, ResidenceConsistent(occupied, contract, role))
	})

	t.Run("vacant residence with no active contract", func(t *testing.T) {
		assert.True(t, ResidenceConsistent(vacant, nil, residentRole(userID, nil)))
	})

	t.Run("vacant residence with a closed contract is consistent", func(t *testing.T) {
		closed := activeContract(userID, residenceID)
		closed.Close(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		assert.True(t, ResidenceConsistent(vacant, closed, residentRole(userID, nil)))
	})

	t.Run("dangling occupancy: occupied residence, contract closed", func(t *testing.T) {
		closed := activeContract(userID, residenceID)
		closed.Close(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		assert.False(t, ResidenceConsistent(occupied, closed, residentRole(userID, &residenceID)))
	})

	t.Run("available flag must mirror occupancy", func(t *testing.T) {
		broken := &models.Residence{ID: residenceID, Available: true, ResidentID: &userID}
		assert.False(t, ResidenceConsistent(broken, activeContract(userID, residenceID), residentRole(userID, &residenceID)))
	})

	t.Run("role pointing at a different residence breaks consistency", func(t *testing.T) {
		other := id.NewResidenceID()
		assert.False(t, ResidenceConsistent(occupied, activeContract(userID, residenceID), residentRole(userID, &other)))
	})

	t.Run("vacant residence with an active contract still referencing it", func(t *testing.T) {
		assert.False(t, ResidenceConsistent(vacant, activeContract(userID, residenceID), residentRole(userID, &residenceID)))
	})

	t.Run("contract held by a different user", func(t *testing.T) {
		assert.False(t, ResidenceConsistent(occupied, activeContract(id.NewUserID(), residenceID), residentRole(userID, &residenceID)))
	})

	t.Run("nil residence is never consistent", func(t *testing.T) {
		assert.False(t, ResidenceConsistent(nil, nil, nil))
	})
}

func TestAtMostOneActiveContract(t *testing.T) {
	userID := id.NewUserID()
	r1 := id.NewResidenceID()
	r2 := id.NewResidenceID()

	first := activeContract(userID, r1)
	second := activeContract(userID, r2)

	assert.True(t, AtMostOneActiveContract(nil))
	assert.True(t, AtMostOneActiveContract([]*models.Contract{first}))
	assert.False(t, AtMostOneActiveContract([]*models.Contract{first, second}))

	first.Close(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, AtMostOneActiveContract([]*models.Contract{first, second}))
}

func TestRoleMatchesContract(t *testing.T) {
	userID := id.NewUserID()
	residenceID := id.NewResidenceID()
	contract := activeContract(userID, residenceID)

	t.Run("role references the contracted residence", func(t *testing.T) {
		assert.True(t, RoleMatchesContract(residentRole(userID, &residenceID), contract))
	})

	t.Run("detached role requires no active contract", func(t *testing.T) {
		assert.True(t, RoleMatchesContract(residentRole(userID, nil), nil))
		assert.False(t, RoleMatchesContract(residentRole(userID, nil), contract))
	})

	t.Run("closed contract counts as no contract", func(t *testing.T) {
		closed := activeContract(userID, residenceID)
		closed.Close(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		assert.True(t, RoleMatchesContract(residentRole(userID, nil), closed))
	})

	t.Run("missing role row is consistent only without a contract", func(t *testing.T) {
		assert.True(t, RoleMatchesContract(nil, nil))
		assert.False(t, RoleMatchesContract(nil, contract))
	})
}
