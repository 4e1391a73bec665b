package admin

import (
	"context"
	"log/slog"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Service implements the admin read operations.
type Service struct {
	store Store
	log   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates the admin service. Panics on nil store to fail
// fast during initialization.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("admin: store is required")
	}
	s := &Service{
		store: store,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAccounts returns a page of accounts. Out-of-range paging inputs
// clamp to sane values instead of erroring.
func (s *Service) ListAccounts(ctx context.Context, limit, offset int) ([]*Account, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListAccounts(ctx, limit, offset)
}

// Stats returns the dashboard summary.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}
