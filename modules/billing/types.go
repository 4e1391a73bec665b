// Package billing manages per-seat subscriptions backed by a hosted
// payment provider. New accounts start on a free trial; paid plans are
// created through provider-hosted checkout and kept in sync via
// webhooks.
package billing

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// Interval is the billing period of a paid subscription.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Valid reports whether the interval is one the storefront sells.
func (i Interval) Valid() bool {
	return i == IntervalMonth || i == IntervalYear
}

// Subscription is a user's subscription record. Each user has at most
// one subscription; trials are subscriptions with status "trialing" and
// no provider counterpart.
type Subscription struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"userId"`
	Status             Status     `json:"status"`
	Interval           Interval   `json:"interval,omitempty"`
	SeatCount          int        `json:"seatCount"`
	TotalPriceCents    int64      `json:"totalPriceCents"`
	ProviderSubID      string     `json:"-"`
	ProviderCustomerID string     `json:"-"`
	TrialEndsAt        *time.Time `json:"trialEndsAt,omitempty"`
	CurrentPeriodStart *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd,omitempty"`
	CanceledAt         *time.Time `json:"canceledAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// TrialExpired reports whether a trialing subscription has run past its
// trial window. Always false for non-trial subscriptions.
func (s *Subscription) TrialExpired(now time.Time) bool {
	return s.Status == StatusTrialing && s.TrialEndsAt != nil && now.After(*s.TrialEndsAt)
}

// Usable reports whether the subscription currently entitles the owner
// to a working license key.
func (s *Subscription) Usable(now time.Time) bool {
	switch s.Status {
	case StatusActive:
		return true
	case StatusTrialing:
		return !s.TrialExpired(now)
	default:
		return false
	}
}

// Pricing describes the storefront's per-seat price list.
type Pricing struct {
	MonthlyPerSeatCents int64  `json:"monthlyPerSeatCents"`
	YearlyPerSeatCents  int64  `json:"yearlyPerSeatCents"`
	TrialDays           int    `json:"trialDays"`
	TrialSeats          int    `json:"trialSeats"`
	MaxSeats            int    `json:"maxSeats"`
	Currency            string `json:"currency"`
}
