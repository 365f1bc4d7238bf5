package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"conexus/internal/account/models"
	accstore "conexus/internal/account/store"
	"conexus/internal/jwttoken"
	dErrors "conexus/pkg/domain-errors"
)

type AccountSuite struct {
	suite.Suite
	svc    *Service
	tokens *jwttoken.Service
	ctx    context.Context
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountSuite))
}

func (s *AccountSuite) SetupTest() {
	s.tokens = jwttoken.New("test-signing-key", "conexus")
	s.svc = New(accstore.NewInMemory(), s.tokens)
	s.ctx = context.Background()
}

func (s *AccountSuite) register(email string) *models.Account {
	account, err := s.svc.Register(s.ctx, &models.RegisterRequest{
		Email:    email,
		Name:     "Ada Reyes",
		Password: "correct-horse",
	})
	s.Require().NoError(err)
	return account
}

func (s *AccountSuite) TestRegisterDefaultsToOperator() {
	account := s.register("ada@example.edu")
	s.Equal(models.RoleOperator, account.Role)
	s.NotEmpty(account.PasswordHash)
	s.NotEqual("correct-horse", string(account.PasswordHash))
}

func (s *AccountSuite) TestDuplicateEmailConflicts() {
	s.register("ada@example.edu")
	_, err := s.svc.Register(s.ctx, &models.RegisterRequest{
		Email:    "Ada@Example.edu",
		Name:     "Ada Again",
		Password: "another-pass",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *AccountSuite) TestLoginIssuesValidToken() {
	account := s.register("ada@example.edu")

	token, got, err := s.svc.Login(s.ctx, &models.LoginRequest{
		Email:    "ada@example.edu",
		Password: "correct-horse",
	})
	s.Require().NoError(err)
	s.Equal(account.ID, got.ID)

	claims, err := s.tokens.ValidateToken(token)
	s.Require().NoError(err)
	s.Equal(account.ID.String(), claims.AccountID)
	s.Equal("ada@example.edu", claims.Email)
	s.Equal(string(models.RoleOperator), claims.Role)
}

func (s *AccountSuite) TestLoginWrongPassword() {
	s.register("ada@example.edu")
	_, _, err := s.svc.Login(s.ctx, &models.LoginRequest{
		Email:    "ada@example.edu",
		Password: "wrong",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *AccountSuite) TestLoginUnknownEmailSameError() {
	s.register("ada@example.edu")

	_, _, wrongPass := s.svc.Login(s.ctx, &models.LoginRequest{
		Email:    "ada@example.edu",
		Password: "wrong",
	})
	_, _, unknown := s.svc.Login(s.ctx, &models.LoginRequest{
		Email:    "nobody@example.edu",
		Password: "wrong",
	})
	s.Require().Error(wrongPass)
	s.Require().Error(unknown)
	s.Equal(wrongPass.Error(), unknown.Error())
}

func (s *AccountSuite) TestRegisterValidation() {
	_, err := s.svc.Register(s.ctx, &models.RegisterRequest{
		Email:    "ada@example.edu",
		Name:     "Ada Reyes",
		Password: "short",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *AccountSuite) TestExpiredTokenRejected() {
	account := s.register("ada@example.edu")

	token, err := s.tokens.GenerateAccessToken(account.ID, account.Email, string(account.Role), -1)
	s.Require().NoError(err)

	_, err = s.tokens.ValidateToken(token)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
