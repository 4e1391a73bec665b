package billing

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the persistence operations for subscriptions.
// Implementations must return ErrSubscriptionNotFound for missing
// records and ErrSubscriptionAlreadyExists when a user already has one.
type Store interface {
	Create(ctx context.Context, sub *Subscription) error
	Update(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error)
}
