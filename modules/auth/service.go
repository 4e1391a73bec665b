// Package auth provides password registration, login, and bearer-token
// identification for the license storefront. Tokens are random values
// persisted with an expiry so sessions survive process restarts and are
// shared across server instances.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenBytes      = 32
	defaultTokenTTL = 30 * 24 * time.Hour
	minPasswordLen  = 8
)

// Service implements account and session operations.
type Service struct {
	storage    Storage
	log        *slog.Logger
	bcryptCost int
	tokenTTL   time.Duration

	// afterRegister runs once a user is created, before the token is
	// returned. The storefront uses it to start the free trial.
	afterRegister func(ctx context.Context, user *User) error
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

// WithAfterRegister sets a hook that runs after successful registration.
func WithAfterRegister(fn func(context.Context, *User) error) Option {
	return func(s *Service) { s.afterRegister = fn }
}

// NewService creates the auth service. Panics on nil storage to fail
// fast during initialization.
func NewService(storage Storage, opts ...Option) *Service {
	if storage == nil {
		panic("auth: storage is required")
	}
	s := &Service{
		storage:    storage,
		log:        slog.New(slog.DiscardHandler),
		bcryptCost: bcrypt.DefaultCost,
		tokenTTL:   defaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user and returns it together with a fresh bearer
// token. Email must be unique; passwords below the minimum length are
// rejected before hashing.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*User, string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, "", ErrEmailRequired
	}
	if len(password) < minPasswordLen {
		return nil, "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	if s.afterRegister != nil {
		if err := s.afterRegister(ctx, user); err != nil {
			s.log.ErrorContext(ctx, "after-register hook failed",
				"user_id", user.ID, "error", err)
		}
	}

	raw, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, raw, nil
}

// Login verifies credentials and returns the user with a fresh bearer
// token. Unknown email and wrong password produce the same error so the
// endpoint does not reveal which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.storage.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	raw, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, raw, nil
}

// Logout deletes the token. Unknown tokens are a no-op success.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if err := s.storage.DeleteToken(ctx, raw); err != nil && !errors.Is(err, ErrTokenNotFound) {
		return err
	}
	return nil
}

// Identify resolves a bearer token to a Principal. Expired tokens are
// deleted on sight.
func (s *Service) Identify(ctx context.Context, raw string) (*Principal, error) {
	if raw == "" {
		return nil, ErrUnauthorized
	}

	token, err := s.storage.GetToken(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if time.Now().After(token.ExpiresAt) {
		_ = s.storage.DeleteToken(ctx, raw)
		return nil, ErrUnauthorized
	}

	user, err := s.storage.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Orphaned token; clean it up.
			_ = s.storage.DeleteToken(ctx, raw)
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	return &Principal{UserID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}, nil
}

// GetUser returns the user record for an authenticated principal.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.storage.GetUserByID(ctx, id)
}

func (s *Service) issueToken(ctx context.Context, userID uuid.UUID) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(buf)

	now := time.Now().UTC()
	token := &Token{
		Token:     raw,
		UserID:    userID,
		ExpiresAt: now.Add(s.tokenTTL),
		CreatedAt: now,
	}
	if err := s.storage.CreateToken(ctx, token); err != nil {
		return "", err
	}

	// Opportunistic sweep keeps the token table from accumulating
	// expired rows without a dedicated scheduler.
	if err := s.storage.DeleteExpiredTokens(ctx); err != nil {
		s.log.WarnContext(ctx, "expired token sweep failed", "error", err)
	}

	return raw, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
