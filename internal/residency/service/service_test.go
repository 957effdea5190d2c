package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"domio/internal/audit"
	auditmemory "domio/internal/audit/store/memory"
	"domio/internal/residency/models"
	"domio/internal/residency/service"
	contractstore "domio/internal/residency/store/contract"
	residencestore "domio/internal/residency/store/residence"
	rolestore "domio/internal/residency/store/role"
	userstore "domio/internal/residency/store/user"
	id "domio/pkg/domain"
	"domio/pkg/requestcontext"
)

// fakeDirectory records identity role resets and can be told to fail.
type fakeDirectory struct {
	mu     sync.Mutex
	resets []id.UserID
	err    error
}

func (d *fakeDirectory) ResetResidentialRole(_ context.Context, userID id.UserID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.resets = append(d.resets, userID)
	return nil
}

func (d *fakeDirectory) resetCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.resets)
}

type fixture struct {
	svc         *service.Service
	users       *userstore.InMemoryUserStore
	residences  *residencestore.InMemoryResidenceStore
	contracts   *contractstore.InMemoryContractStore
	roles       *rolestore.InMemoryRoleStore
	directory   *fakeDirectory
	auditStore  *auditmemory.InMemoryStore
	recorder    *audit.Recorder
	residential id.ResidentialID
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	f := &fixture{
		users:       userstore.New(),
		residences:  residencestore.New(),
		contracts:   contractstore.New(),
		roles:       rolestore.New(),
		directory:   &fakeDirectory{},
		auditStore:  auditmemory.New(),
		residential: id.NewResidentialID(),
	}
	f.recorder = audit.NewRecorder(f.auditStore)
	f.svc = service.New(f.users, f.residences, f.contracts, f.roles, f.directory, f.recorder, opts...)
	return f
}

// seedResident creates an active resident occupying a residence with an
// open contract and an attached role row.
func (f *fixture) seedResident(t *testing.T, start time.Time) (*models.User, *models.Residence, *models.Contract) {
	t.Helper()
	ctx := context.Background()

	user := &models.User{
		ID:            id.NewUserID(),
		ResidentialID: f.residential,
		FirstName:     "Marta",
		LastName:      "Reyes",
		Email:         "marta@example.com",
		Active:        true,
	}
	require.NoError(t, f.users.Insert(ctx, user))

	residence, err := models.NewResidence(id.NewResidenceID(), f.residential, models.ResidenceApartment, "A-101", "")
	require.NoError(t, err)
	require.NoError(t, f.residences.Insert(ctx, residence))
	require.NoError(t, f.residences.ClaimIfAvailable(ctx, residence.ID, user.ID))

	contract, err := models.NewContract(id.NewContractID(), user.ID, residence.ID, f.residential, start)
	require.NoError(t, err)
	require.NoError(t, f.contracts.Insert(ctx, contract))

	role := &models.ResidentialRole{
		ID:            id.NewRoleID(),
		UserID:        user.ID,
		ResidentialID: f.residential,
		Role:          id.RoleResident,
	}
	role.SetResidence(residence.ID)
	require.NoError(t, f.roles.Save(ctx, role))

	loaded, err := f.residences.FindByID(ctx, residence.ID)
	require.NoError(t, err)
	return user, loaded, contract
}

// seedUser creates an active user with the given role and no residency.
func (f *fixture) seedUser(t *testing.T, roleName id.RoleName) *models.User {
	t.Helper()
	ctx := context.Background()

	user := &models.User{
		ID:            id.NewUserID(),
		ResidentialID: f.residential,
		FirstName:     "Jorge",
		LastName:      "Luna",
		Email:         "jorge@example.com",
		Active:        true,
	}
	require.NoError(t, f.users.Insert(ctx, user))

	role := &models.ResidentialRole{
		ID:            id.NewRoleID(),
		UserID:        user.ID,
		ResidentialID: f.residential,
		Role:          roleName,
	}
	require.NoError(t, f.roles.Save(ctx, role))
	return user
}

// seedResidence creates an available, unoccupied residence.
func (f *fixture) seedResidence(t *testing.T, name string) *models.Residence {
	t.Helper()
	residence, err := models.NewResidence(id.NewResidenceID(), f.residential, models.ResidenceApartment, name, "")
	require.NoError(t, err)
	require.NoError(t, f.residences.Insert(context.Background(), residence))
	return residence
}

// entriesFor filters the recorded audit entries by action.
func (f *fixture) entriesFor(action audit.Action) []audit.Entry {
	var out []audit.Entry
	for _, e := range f.auditStore.All() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// testContext carries an actor, a residential, and a frozen clock.
func (f *fixture) testContext(now time.Time) context.Context {
	ctx := context.Background()
	ctx = requestcontext.WithActorID(ctx, id.NewUserID())
	ctx = requestcontext.WithResidentialID(ctx, f.residential)
	return requestcontext.WithTime(ctx, now)
}
