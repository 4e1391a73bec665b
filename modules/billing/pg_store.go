package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

const subscriptionColumns = `id, user_id, status, billing_interval, seat_count, total_price_cents,
	provider_sub_id, provider_customer_id, trial_ends_at,
	current_period_start, current_period_end, canceled_at, created_at, updated_at`

// PgStore is the PostgreSQL implementation of Store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	if pool == nil {
		panic("billing: pgx pool is required")
	}
	return &PgStore{pool: pool}
}

func (s *PgStore) Create(ctx context.Context, sub *Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		sub.ID, sub.UserID, sub.Status, sub.Interval, sub.SeatCount, sub.TotalPriceCents,
		sub.ProviderSubID, sub.ProviderCustomerID, sub.TrialEndsAt,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CanceledAt, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrSubscriptionAlreadyExists
		}
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (s *PgStore) Update(ctx context.Context, sub *Subscription) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = $2, billing_interval = $3, seat_count = $4, total_price_cents = $5,
		    provider_sub_id = $6, provider_customer_id = $7, trial_ends_at = $8,
		    current_period_start = $9, current_period_end = $10, canceled_at = $11,
		    updated_at = $12
		WHERE id = $1`,
		sub.ID, sub.Status, sub.Interval, sub.SeatCount, sub.TotalPriceCents,
		sub.ProviderSubID, sub.ProviderCustomerID, sub.TrialEndsAt,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CanceledAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.scan(s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id))
}

func (s *PgStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.scan(s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID))
}

func (s *PgStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	return s.scan(s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_sub_id = $1`, providerSubID))
}

func (s *PgStore) scan(row pgx.Row) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(&sub.ID, &sub.UserID, &sub.Status, &sub.Interval, &sub.SeatCount,
		&sub.TotalPriceCents, &sub.ProviderSubID, &sub.ProviderCustomerID, &sub.TrialEndsAt,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CanceledAt,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}
