package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"domio/internal/residency/models"
	id "domio/pkg/domain"
	"domio/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) newUser() *models.User {
	return &models.User{
		ID:            id.NewUserID(),
		ResidentialID: id.NewResidentialID(),
		FirstName:     "Jane",
		LastName:      "Doe",
		Email:         "jane.doe@example.com",
		Active:        true,
	}
}

func (s *InMemoryUserStoreSuite) TestLookupBehavior() {
	s.Run("returns user by ID when exists", func() {
		user := s.newUser()
		s.Require().NoError(s.store.Insert(context.Background(), user))

		found, err := s.store.FindByID(context.Background(), user.ID)
		s.Require().NoError(err)
		s.Equal(user, found)
	})

	s.Run("returns ErrNotFound when user does not exist", func() {
		_, err := s.store.FindByID(context.Background(), id.NewUserID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned rows are copies", func() {
		user := s.newUser()
		s.Require().NoError(s.store.Insert(context.Background(), user))

		found, err := s.store.FindByID(context.Background(), user.ID)
		s.Require().NoError(err)
		found.Active = false

		again, err := s.store.FindByID(context.Background(), user.ID)
		s.Require().NoError(err)
		s.True(again.Active)
	})
}

func (s *InMemoryUserStoreSuite) TestSetActive() {
	s.Run("flips only the active flag", func() {
		user := s.newUser()
		s.Require().NoError(s.store.Insert(context.Background(), user))

		s.Require().NoError(s.store.SetActive(context.Background(), user.ID, false))

		found, err := s.store.FindByID(context.Background(), user.ID)
		s.Require().NoError(err)
		s.False(found.Active)
		s.Equal(user.Email, found.Email)
	})

	s.Run("re-applying converges to the same state", func() {
		user := s.newUser()
		s.Require().NoError(s.store.Insert(context.Background(), user))

		s.Require().NoError(s.store.SetActive(context.Background(), user.ID, false))
		s.Require().NoError(s.store.SetActive(context.Background(), user.ID, false))

		found, err := s.store.FindByID(context.Background(), user.ID)
		s.Require().NoError(err)
		s.False(found.Active)
	})

	s.Run("returns ErrNotFound for unknown user", func() {
		err := s.store.SetActive(context.Background(), id.NewUserID(), false)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestInsertConflict() {
	user := s.newUser()
	s.Require().NoError(s.store.Insert(context.Background(), user))
	s.Require().ErrorIs(s.store.Insert(context.Background(), user), sentinel.ErrConflict)
}

func (s *InMemoryUserStoreSuite) TestListByResidential() {
	user := s.newUser()
	other := s.newUser()
	s.Require().NoError(s.store.Insert(context.Background(), user))
	s.Require().NoError(s.store.Insert(context.Background(), other))

	users, err := s.store.ListByResidential(context.Background(), user.ResidentialID)
	s.Require().NoError(err)
	s.Len(users, 1)
	s.Equal(user.ID, users[0].ID)
}
