package billing

import (
	"context"
	"time"
)

// BillingProvider abstracts the hosted payment provider. The provider
// owns checkout, payment methods, and the customer portal; this service
// only mirrors subscription state from webhooks.
type BillingProvider interface {
	// CreateCheckoutLink creates a hosted checkout session for a
	// per-seat subscription.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// GetCustomerPortalLink returns a temporary link to the provider's
	// customer portal where users can update payment methods, change
	// seats, or cancel.
	GetCustomerPortalLink(ctx context.Context, sub *Subscription) (*PortalLink, error)

	// ParseWebhook verifies the signature and normalizes the event.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	PriceID    string // provider price identifier
	Quantity   int    // seats
	UserID     string // internal user ID, round-tripped via custom data
	Email      string // optional billing email
	SuccessURL string
	CancelURL  string
}

// CheckoutLink is a hosted checkout session.
type CheckoutLink struct {
	URL       string    `json:"url"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PortalLink is a pre-authenticated customer portal session.
type PortalLink struct {
	URL              string    `json:"url"`
	CancelURL        string    `json:"cancelUrl,omitempty"`
	UpdatePaymentURL string    `json:"updatePaymentUrl,omitempty"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

// WebhookEvent is a normalized billing event.
type WebhookEvent struct {
	Type           EventType
	ProviderEvent  string
	SubscriptionID string // provider's subscription ID
	CustomerID     string // provider's customer ID
	UserID         string // internal user ID from custom data
	Status         string // provider subscription status
	PriceID        string
	Quantity       int
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	Raw            map[string]any
}

// EventType is the normalized billing event type. Each provider maps
// its own event names onto these.
type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription_created"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventSubscriptionResumed  EventType = "subscription_resumed"

	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
)
