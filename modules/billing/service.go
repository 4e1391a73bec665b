package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Config holds the storefront price list and trial parameters. Price
// identifiers must match the catalog prices configured at the provider.
type Config struct {
	MonthlyPriceCents int64  `env:"BILLING_MONTHLY_PRICE_CENTS" envDefault:"500"`
	YearlyPriceCents  int64  `env:"BILLING_YEARLY_PRICE_CENTS" envDefault:"5000"`
	MonthlyPriceID    string `env:"PADDLE_PRICE_ID_MONTHLY"`
	YearlyPriceID     string `env:"PADDLE_PRICE_ID_YEARLY"`
	TrialDays         int    `env:"BILLING_TRIAL_DAYS" envDefault:"30"`
	TrialSeats        int    `env:"BILLING_TRIAL_SEATS" envDefault:"100"`
	MaxSeats          int    `env:"BILLING_MAX_SEATS" envDefault:"10000"`
	SuccessURL        string `env:"BILLING_SUCCESS_URL" envDefault:"https://qualitybytes.samosalabs.com/billing/success"`
	CancelURL         string `env:"BILLING_CANCEL_URL" envDefault:"https://qualitybytes.samosalabs.com/billing/cancel"`
}

// Service implements subscription management for the storefront.
type Service struct {
	store    Store
	provider BillingProvider
	config   Config
	log      *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates the billing service. Panics on nil store or
// provider to fail fast during initialization.
func NewService(store Store, provider BillingProvider, config Config, opts ...Option) *Service {
	if store == nil {
		panic("billing: store is required")
	}
	if provider == nil {
		panic("billing: provider is required")
	}
	s := &Service{
		store:    store,
		provider: provider,
		config:   config,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pricing returns the public price list.
func (s *Service) Pricing() Pricing {
	return Pricing{
		MonthlyPerSeatCents: s.config.MonthlyPriceCents,
		YearlyPerSeatCents:  s.config.YearlyPriceCents,
		TrialDays:           s.config.TrialDays,
		TrialSeats:          s.config.TrialSeats,
		MaxSeats:            s.config.MaxSeats,
		Currency:            "USD",
	}
}

// Quote returns the total price in cents for a seat count and interval.
func (s *Service) Quote(seats int, interval Interval) (int64, error) {
	if seats < 1 || seats > s.config.MaxSeats {
		return 0, ErrInvalidSeatCount
	}
	switch interval {
	case IntervalMonth:
		return int64(seats) * s.config.MonthlyPriceCents, nil
	case IntervalYear:
		return int64(seats) * s.config.YearlyPriceCents, nil
	default:
		return 0, ErrInvalidInterval
	}
}

// StartTrial creates a trialing subscription for a new user. Each user
// gets exactly one trial; a second call fails with
// ErrSubscriptionAlreadyExists.
func (s *Service) StartTrial(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	now := time.Now().UTC()
	trialEnd := now.AddDate(0, 0, s.config.TrialDays)

	sub := &Subscription{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      StatusTrialing,
		SeatCount:   s.config.TrialSeats,
		TrialEndsAt: &trialEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "trial started",
		"user_id", userID, "trial_ends_at", trialEnd, "seats", sub.SeatCount)

	return sub, nil
}

// GetForUser returns the user's subscription with trial expiry applied.
// A trialing subscription past its trial window is flipped to expired
// and persisted before it is returned.
func (s *Service) GetForUser(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if sub.TrialExpired(time.Now()) {
		sub.Status = StatusExpired
		sub.UpdatedAt = time.Now().UTC()
		if err := s.store.Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("expire trial: %w", err)
		}
		s.log.InfoContext(ctx, "trial expired", "user_id", userID, "subscription_id", sub.ID)
	}

	return sub, nil
}

// MarkExpired flips a subscription to expired regardless of its current
// status.
func (s *Service) MarkExpired(ctx context.Context, id uuid.UUID) error {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status == StatusExpired {
		return nil
	}

	sub.Status = StatusExpired
	sub.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, sub); err != nil {
		return fmt.Errorf("expire subscription: %w", err)
	}

	s.log.InfoContext(ctx, "subscription expired", "subscription_id", id, "user_id", sub.UserID)

	return nil
}

// CreateCheckout builds a provider-hosted checkout link for the given
// seat count and interval. The user's internal ID rides along in custom
// data so the webhook can attach the paid subscription back to them.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, email string, seats int, interval Interval) (*CheckoutLink, error) {
	if _, err := s.Quote(seats, interval); err != nil {
		return nil, err
	}

	priceID, err := s.priceIDFor(interval)
	if err != nil {
		return nil, err
	}

	// A user with a live paid subscription manages seats through the
	// portal instead of buying a second subscription.
	if sub, err := s.store.GetByUserID(ctx, userID); err == nil {
		if sub.Status == StatusActive && sub.ProviderSubID != "" {
			return nil, ErrSubscriptionAlreadyExists
		}
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	return s.provider.CreateCheckoutLink(ctx, CheckoutRequest{
		PriceID:    priceID,
		Quantity:   seats,
		UserID:     userID.String(),
		Email:      email,
		SuccessURL: s.config.SuccessURL,
		CancelURL:  s.config.CancelURL,
	})
}

// GetPortalLink returns a customer portal link for the user's paid
// subscription.
func (s *Service) GetPortalLink(ctx context.Context, userID uuid.UUID) (*PortalLink, error) {
	sub, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.ProviderSubID == "" {
		return nil, ErrNoBillableSubscription
	}
	return s.provider.GetCustomerPortalLink(ctx, sub)
}

// HandleWebhook verifies and applies a provider webhook. Unknown event
// types are acknowledged without effect so the provider does not retry
// them forever.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "billing webhook received",
		"event", event.ProviderEvent, "subscription_id", event.SubscriptionID)

	switch event.Type {
	case EventSubscriptionCreated:
		return s.applyCreated(ctx, event)
	case EventSubscriptionUpdated, EventSubscriptionResumed:
		return s.applyUpdate(ctx, event)
	case EventSubscriptionCanceled:
		return s.applyCanceled(ctx, event)
	case EventPaymentSucceeded:
		return s.applyPaymentResult(ctx, event, StatusActive)
	case EventPaymentFailed:
		return s.applyPaymentResult(ctx, event, StatusPastDue)
	default:
		return nil
	}
}

// applyCreated attaches a paid subscription to the user. The trial
// record converts in place when one exists so the user keeps a single
// subscription row.
func (s *Service) applyCreated(ctx context.Context, event *WebhookEvent) error {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return fmt.Errorf("invalid user ID in webhook: %w", err)
	}

	interval, err := s.intervalFor(event.PriceID)
	if err != nil {
		return err
	}

	seats := event.Quantity
	if seats < 1 {
		seats = 1
	}
	total, err := s.Quote(seats, interval)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	created := false
	sub, err := s.store.GetByUserID(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, ErrSubscriptionNotFound):
		sub = &Subscription{ID: uuid.New(), UserID: userID, CreatedAt: now}
		created = true
	default:
		return err
	}

	sub.Status = StatusActive
	if event.Status != "" {
		sub.Status = mapPaddleStatus(event.Status)
	}
	sub.Interval = interval
	sub.SeatCount = seats
	sub.TotalPriceCents = total
	sub.ProviderSubID = event.SubscriptionID
	sub.ProviderCustomerID = event.CustomerID
	sub.TrialEndsAt = nil
	sub.CurrentPeriodStart = event.PeriodStart
	sub.CurrentPeriodEnd = event.PeriodEnd
	sub.CanceledAt = nil
	sub.UpdatedAt = now

	if created {
		return s.store.Create(ctx, sub)
	}
	return s.store.Update(ctx, sub)
}

func (s *Service) applyUpdate(ctx context.Context, event *WebhookEvent) error {
	sub, err := s.findSubscription(ctx, event)
	if err != nil {
		return err
	}

	if event.Status != "" {
		sub.Status = mapPaddleStatus(event.Status)
	}
	if event.Quantity > 0 {
		sub.SeatCount = event.Quantity
	}
	if event.PriceID != "" {
		if interval, err := s.intervalFor(event.PriceID); err == nil {
			sub.Interval = interval
		}
	}
	if sub.Interval.Valid() {
		if total, err := s.Quote(sub.SeatCount, sub.Interval); err == nil {
			sub.TotalPriceCents = total
		}
	}
	if event.PeriodStart != nil {
		sub.CurrentPeriodStart = event.PeriodStart
	}
	if event.PeriodEnd != nil {
		sub.CurrentPeriodEnd = event.PeriodEnd
	}
	if sub.Status != StatusCanceled {
		sub.CanceledAt = nil
	}
	sub.UpdatedAt = time.Now().UTC()

	return s.store.Update(ctx, sub)
}

func (s *Service) applyCanceled(ctx context.Context, event *WebhookEvent) error {
	sub, err := s.findSubscription(ctx, event)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	sub.Status = StatusCanceled
	sub.CanceledAt = &now
	sub.UpdatedAt = now

	return s.store.Update(ctx, sub)
}

func (s *Service) applyPaymentResult(ctx context.Context, event *WebhookEvent, status Status) error {
	sub, err := s.findSubscription(ctx, event)
	if err != nil {
		// Payment events can arrive before the subscription record
		// exists; the subscription event will carry the state.
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}

	sub.Status = status
	sub.UpdatedAt = time.Now().UTC()

	return s.store.Update(ctx, sub)
}

func (s *Service) findSubscription(ctx context.Context, event *WebhookEvent) (*Subscription, error) {
	if event.SubscriptionID != "" {
		if sub, err := s.store.GetByProviderSubID(ctx, event.SubscriptionID); err == nil {
			return sub, nil
		} else if !errors.Is(err, ErrSubscriptionNotFound) {
			return nil, err
		}
	}
	if event.UserID != "" {
		userID, err := uuid.Parse(event.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in webhook: %w", err)
		}
		return s.store.GetByUserID(ctx, userID)
	}
	return nil, ErrSubscriptionNotFound
}

func (s *Service) priceIDFor(interval Interval) (string, error) {
	switch interval {
	case IntervalMonth:
		return s.config.MonthlyPriceID, nil
	case IntervalYear:
		return s.config.YearlyPriceID, nil
	default:
		return "", ErrInvalidInterval
	}
}

func (s *Service) intervalFor(priceID string) (Interval, error) {
	switch priceID {
	case s.config.MonthlyPriceID:
		return IntervalMonth, nil
	case s.config.YearlyPriceID:
		return IntervalYear, nil
	default:
		return "", ErrUnknownPrice
	}
}
