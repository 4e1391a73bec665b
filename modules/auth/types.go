package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	PasswordHash []byte    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Token is a persisted bearer token. The raw token value is the primary
// key; tokens expire and are swept lazily.
type Token struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Principal is the authenticated identity passed explicitly into domain
// operations. It is resolved once by the middleware and never inferred
// from ambient request state.
type Principal struct {
	UserID  uuid.UUID
	Email   string
	IsAdmin bool
}
