// Package service implements account registration and credential login.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"conexus/internal/account/models"
	"conexus/internal/account/store"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/sentinel"
	"conexus/pkg/requestcontext"
)

// DefaultTokenTTL is how long a login token stays valid.
const DefaultTokenTTL = 12 * time.Hour

// TokenIssuer signs access tokens after a successful login.
type TokenIssuer interface {
	GenerateAccessToken(accountID uuid.UUID, email, role string, expiresIn time.Duration) (string, error)
}

type Service struct {
	store    store.Store
	issuer   TokenIssuer
	tokenTTL time.Duration
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func New(st store.Store, issuer TokenIssuer, opts ...Option) *Service {
	s := &Service{
		store:    st,
		issuer:   issuer,
		tokenTTL: DefaultTokenTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account. Passwords are hashed with bcrypt before they
// touch storage; the plaintext is never persisted or logged.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	account := &models.Account{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyBound) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.logger.InfoContext(ctx, "account registered",
		"request_id", requestcontext.RequestID(ctx),
		"account_id", account.ID,
		"role", account.Role,
	)
	return account, nil
}

// Login verifies the credentials and issues an access token. Unknown email
// and wrong password return the same error so the endpoint cannot be used
// to probe for accounts.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (string, *models.Account, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", nil, err
	}

	account, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(req.Password)); err != nil {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}

	token, err := s.issuer.GenerateAccessToken(account.ID, account.Email, string(account.Role), s.tokenTTL)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return token, account, nil
}

// Profile loads the account behind an authenticated request.
func (s *Service) Profile(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return account, nil
}
