// Package service implements admin dashboard authentication.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"alumreg/internal/admin/models"
	"alumreg/internal/admin/secrets"
	"alumreg/internal/platform/middleware"
	"alumreg/pkg/domain"
	dErrors "alumreg/pkg/domain-errors"
	"alumreg/pkg/platform/sentinel"
	"alumreg/pkg/requestcontext"
)

// Store is the persistence surface the auth service needs.
type Store interface {
	Create(ctx context.Context, admin *models.Admin) error
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
}

// sessionTTL bounds how long a dashboard session stays valid.
const sessionTTL = 12 * time.Hour

// Service authenticates admins and issues session tokens.
type Service struct {
	store      Store
	signingKey []byte
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs the admin auth service.
func New(store Store, signingKey string, opts ...Option) *Service {
	s := &Service{
		store:      store,
		signingKey: []byte(signingKey),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is an issued dashboard session.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login verifies credentials and issues a signed session token. Unknown
// email and wrong password return the same error so the endpoint cannot be
// used to enumerate accounts.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	badCredentials := dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

	admin, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, badCredentials
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if !secrets.Verify(admin.PasswordHash, password) {
		s.logger.WarnContext(ctx, "admin login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"email", email)
		return nil, badCredentials
	}

	now := requestcontext.Now(ctx)
	expires := now.Add(sessionTTL)
	claims := middleware.AdminClaims{
		Email: admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &Session{
		Token:     token,
		Email:     admin.Email,
		FullName:  admin.FullName,
		ExpiresAt: expires,
	}, nil
}

// Provision creates an admin account with a hashed password. It backs the
// bootstrap path in main and test setup; there is no public signup.
func (s *Service) Provision(ctx context.Context, email, fullName, password string) (*models.Admin, error) {
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{
		ID:           domain.NewAdminID(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an admin with this email already exists")
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}
