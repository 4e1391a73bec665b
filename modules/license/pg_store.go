package license

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

const keyColumns = `id, key, owner_id, subscription_id, seat_count, status, usage_count, last_used_at, created_at, updated_at`

// PgStore is the PostgreSQL implementation of Store. The
// one-key-per-owner and one-key-per-subscription rules live in unique
// indexes, so they hold under concurrent issuance without advisory
// locks.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	if pool == nil {
		panic("license: pgx pool is required")
	}
	return &PgStore{pool: pool}
}

func (s *PgStore) Create(ctx context.Context, key *Key) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO license_keys (`+keyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		key.ID, key.Key, key.OwnerID, key.SubscriptionID, key.SeatCount,
		key.Status, key.UsageCount, key.LastUsedAt, key.CreatedAt, key.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// The violated constraint tells collisions on the key value
			// apart from an owner who already holds a key.
			if strings.Contains(pgErr.ConstraintName, "key_value") {
				return ErrDuplicateKey
			}
			return ErrKeyAlreadyIssued
		}
		return fmt.Errorf("create license key: %w", err)
	}
	return nil
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*Key, error) {
	return s.scan(s.pool.QueryRow(ctx, `
		SELECT `+keyColumns+` FROM license_keys WHERE id = $1`, id))
}

func (s *PgStore) GetByKey(ctx context.Context, raw string) (*Key, error) {
	return s.scan(s.pool.QueryRow(ctx, `
		SELECT `+keyColumns+` FROM license_keys WHERE key = $1`, raw))
}

func (s *PgStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Key, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+keyColumns+` FROM license_keys
		WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list license keys: %w", err)
	}
	return s.collect(rows)
}

func (s *PgStore) ListAll(ctx context.Context) ([]*Key, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+keyColumns+` FROM license_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list license keys: %w", err)
	}
	return s.collect(rows)
}

func (s *PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE license_keys SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("update license key status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *PgStore) RecordUsage(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE license_keys
		SET usage_count = usage_count + 1, last_used_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record license usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *PgStore) ExpireBySubscription(ctx context.Context, subscriptionID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE license_keys SET status = $2, updated_at = now()
		WHERE subscription_id = $1 AND status <> $2`,
		subscriptionID, StatusExpired)
	if err != nil {
		return fmt.Errorf("expire license keys: %w", err)
	}
	return nil
}

func (s *PgStore) scan(row pgx.Row) (*Key, error) {
	var k Key
	err := row.Scan(&k.ID, &k.Key, &k.OwnerID, &k.SubscriptionID, &k.SeatCount,
		&k.Status, &k.UsageCount, &k.LastUsedAt, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get license key: %w", err)
	}
	return &k, nil
}

func (s *PgStore) collect(rows pgx.Rows) ([]*Key, error) {
	defer rows.Close()

	var keys []*Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.ID, &k.Key, &k.OwnerID, &k.SubscriptionID, &k.SeatCount,
			&k.Status, &k.UsageCount, &k.LastUsedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan license key: %w", err)
		}
		keys = append(keys, &k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate license keys: %w", err)
	}
	return keys, nil
}
