package auth

import (
	"context"

	"github.com/google/uuid"
)

// Storage defines the persistence operations for users and bearer
// tokens. Implementations must return ErrUserNotFound / ErrTokenNotFound
// for missing records and ErrEmailAlreadyTaken for duplicate emails.
type Storage interface {
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateToken(ctx context.Context, token *Token) error
	GetToken(ctx context.Context, raw string) (*Token, error)
	DeleteToken(ctx context.Context, raw string) error
	DeleteExpiredTokens(ctx context.Context) error
}
