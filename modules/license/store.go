package license

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the persistence operations for license keys.
// Implementations must return ErrKeyNotFound for missing records,
// ErrKeyAlreadyIssued when the owner or subscription already has a key,
// and ErrDuplicateKey when the generated key value collides.
type Store interface {
	Create(ctx context.Context, key *Key) error
	GetByID(ctx context.Context, id uuid.UUID) (*Key, error)
	GetByKey(ctx context.Context, raw string) (*Key, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Key, error)
	ListAll(ctx context.Context) ([]*Key, error)

	// UpdateStatus transitions a key's lifecycle state.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// RecordUsage increments the usage counter and stamps last use.
	// Implementations perform the increment atomically in the store so
	// concurrent validations never lose counts.
	RecordUsage(ctx context.Context, id uuid.UUID) error

	// ExpireBySubscription marks every key of a subscription expired.
	ExpireBySubscription(ctx context.Context, subscriptionID uuid.UUID) error
}
