package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/rosterhq/playerapi/internal/store"
	"github.com/rosterhq/playerapi/internal/testutil"
)

type OperatorServiceSuite struct {
	suite.Suite
	service *OperatorService
	ctx     context.Context
}

func TestOperatorServiceSuite(t *testing.T) {
	suite.Run(t, new(OperatorServiceSuite))
}

func (s *OperatorServiceSuite) SetupTest() {
	s.service = NewOperatorService(store.NewOperatorRepository(testutil.OpenSQLite(s.T()), store.SQLite))
	s.service.cost = bcrypt.MinCost
	s.ctx = context.Background()
}

func (s *OperatorServiceSuite) TestRegisterAndAuthenticate() {
	registered, err := s.service.Register(s.ctx, "  gm  ", "dungeon-master")
	s.Require().NoError(err)
	s.Positive(registered.ID)
	s.Equal("gm", registered.Username)
	s.Equal(DefaultOperatorRole, registered.Role)
	s.NotEqual("dungeon-master", registered.PasswordHash)

	authenticated, err := s.service.Authenticate(s.ctx, "gm", "dungeon-master")
	s.Require().NoError(err)
	s.Equal(registered.ID, authenticated.ID)

	found, err := s.service.GetByID(s.ctx, registered.ID)
	s.Require().NoError(err)
	s.Equal("gm", found.Username)
}

func (s *OperatorServiceSuite) TestRegisterRejectsDuplicates() {
	_, err := s.service.Register(s.ctx, "gm", "dungeon-master")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "gm", "another-password")
	s.ErrorIs(err, ErrUsernameTaken)
}

func (s *OperatorServiceSuite) TestRegisterValidatesInput() {
	var validationErr *ValidationError

	_, err := s.service.Register(s.ctx, " ", "dungeon-master")
	s.True(errors.As(err, &validationErr))

	_, err = s.service.Register(s.ctx, "gm", "short")
	s.True(errors.As(err, &validationErr))
}

func (s *OperatorServiceSuite) TestAuthenticateFailures() {
	_, err := s.service.Register(s.ctx, "gm", "dungeon-master")
	s.Require().NoError(err)

	_, err = s.service.Authenticate(s.ctx, "gm", "wrong-password")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.service.Authenticate(s.ctx, "nobody", "dungeon-master")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *OperatorServiceSuite) TestGetByIDMissing() {
	var notFound *NotFoundError
	_, err := s.service.GetByID(s.ctx, 12)
	s.True(errors.As(err, &notFound))
}

func (s *OperatorServiceSuite) TestHasOperators() {
	has, err := s.service.HasOperators(s.ctx)
	s.Require().NoError(err)
	s.False(has)

	_, err = s.service.Register(s.ctx, "gm", "dungeon-master")
	s.Require().NoError(err)

	has, err = s.service.HasOperators(s.ctx)
	s.Require().NoError(err)
	s.True(has)
}
