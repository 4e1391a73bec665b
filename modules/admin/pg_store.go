package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the PostgreSQL implementation of Store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	if pool == nil {
		panic("admin: pgx pool is required")
	}
	return &PgStore{pool: pool}
}

func (s *PgStore) ListAccounts(ctx context.Context, limit, offset int) ([]*Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.email, u.first_name, u.last_name, u.is_admin, u.created_at,
		       coalesce(s.status, ''), coalesce(s.seat_count, 0),
		       coalesce(s.total_price_cents, 0), coalesce(s.billing_interval, '')
		FROM users u
		LEFT JOIN subscriptions s ON s.user_id = u.id
		ORDER BY u.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.IsAdmin, &a.CreatedAt,
			&a.SubscriptionStatus, &a.SeatCount, &a.TotalPriceCents, &a.BillingInterval); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func (s *PgStore) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM subscriptions WHERE status = 'active'),
			(SELECT count(*) FROM subscriptions WHERE status = 'trialing'),
			(SELECT count(*) FROM license_keys),
			(SELECT coalesce(sum(
				CASE billing_interval
					WHEN 'month' THEN total_price_cents
					WHEN 'year' THEN total_price_cents / 12
					ELSE 0
				END), 0)
			 FROM subscriptions WHERE status = 'active')`,
	).Scan(&stats.TotalUsers, &stats.ActiveSubscriptions, &stats.TrialSubscriptions,
		&stats.TotalLicenseKeys, &stats.MonthlyRevenueCents)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return &stats, nil
}
