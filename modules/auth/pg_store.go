package auth

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

// PgStorage is the PostgreSQL implementation of Storage.
type PgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage creates a PostgreSQL-backed storage.
func NewPgStorage(pool *pgxpool.Pool) *PgStorage {
	if pool == nil {
		panic("auth: pgx pool is required")
	}
	return &PgStorage{pool: pool}
}

func (s *PgStorage) CreateUser(ctx context.Context, user *User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.IsAdmin, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrEmailAlreadyTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PgStorage) UpdateUser(ctx context.Context, user *User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, password_hash = $5,
		    is_admin = $6, updated_at = now()
		WHERE id = $1`,
		user.ID, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.IsAdmin,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrEmailAlreadyTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PgStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, password_hash, is_admin, created_at, updated_at
		FROM users WHERE id = $1`, id))
}

func (s *PgStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, password_hash, is_admin, created_at, updated_at
		FROM users WHERE email = $1`, email))
}

func (s *PgStorage) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PgStorage) CreateToken(ctx context.Context, token *Token) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auth_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`,
		token.Token, token.UserID, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

func (s *PgStorage) GetToken(ctx context.Context, raw string) (*Token, error) {
	var t Token
	err := s.pool.QueryRow(ctx, `
		SELECT token, user_id, expires_at, created_at
		FROM auth_tokens WHERE token = $1`, raw,
	).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &t, nil
}

func (s *PgStorage) DeleteToken(ctx context.Context, raw string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE token = $1`, raw)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (s *PgStorage) DeleteExpiredTokens(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE expires_at < now()`)
	if err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}
	return nil
}
