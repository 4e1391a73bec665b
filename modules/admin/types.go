// Package admin provides the operator surface: account listings with
// subscription context and storefront-wide statistics.
package admin

import (
	"time"

	"github.com/google/uuid"
)

// Account is a user row enriched with subscription context for the
// admin listing.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`

	SubscriptionStatus string `json:"subscriptionStatus,omitempty"`
	SeatCount          int    `json:"seatCount,omitempty"`
	TotalPriceCents    int64  `json:"totalPriceCents,omitempty"`
	BillingInterval    string `json:"billingInterval,omitempty"`
}

// Stats is the storefront-wide dashboard summary. Monthly revenue
// normalizes yearly subscriptions to a per-month figure.
type Stats struct {
	TotalUsers          int64 `json:"totalUsers"`
	ActiveSubscriptions int64 `json:"activeSubscriptions"`
	TrialSubscriptions  int64 `json:"trialSubscriptions"`
	TotalLicenseKeys    int64 `json:"totalLicenseKeys"`
	MonthlyRevenueCents int64 `json:"monthlyRevenueCents"`
}
