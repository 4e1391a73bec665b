// Package license issues and validates product license keys. Every
// subscription carries exactly one key; the key unlocks all seats the
// subscription pays for, and validation is a single exact-match lookup
// exposed to product installations.
package license

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a license key.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// Key is an issued license key. SeatCount snapshots the subscription's
// seats at issuance; the admin listing surfaces it next to live
// subscription state.
type Key struct {
	ID             uuid.UUID  `json:"id"`
	Key            string     `json:"key"`
	OwnerID        uuid.UUID  `json:"ownerId"`
	SubscriptionID uuid.UUID  `json:"subscriptionId"`
	SeatCount      int        `json:"seatCount"`
	Status         Status     `json:"status"`
	UsageCount     int64      `json:"usageCount"`
	LastUsedAt     *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Verdict is the outcome of a validation request. Summaries are only
// attached to successful verdicts; failures carry a message and nothing
// about internal state.
type Verdict struct {
	Valid        bool                 `json:"valid"`
	TrialExpired bool                 `json:"trialExpired,omitempty"`
	Message      string               `json:"message,omitempty"`
	License      *KeySummary          `json:"license,omitempty"`
	User         *OwnerSummary        `json:"user,omitempty"`
	Subscription *SubscriptionSummary `json:"subscription,omitempty"`
}

// KeySummary is the license portion of a successful verdict.
type KeySummary struct {
	Key        string     `json:"key"`
	Status     Status     `json:"status"`
	SeatCount  int        `json:"seatCount"`
	UsageCount int64      `json:"usageCount"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// OwnerSummary identifies the key owner in a successful verdict.
type OwnerSummary struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SubscriptionSummary is the subscription portion of a successful
// verdict.
type SubscriptionSummary struct {
	Status    string `json:"status"`
	SeatCount int    `json:"seatCount"`
	Interval  string `json:"interval,omitempty"`
}
