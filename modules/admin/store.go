package admin

import "context"

// Store defines the read queries backing the admin surface.
type Store interface {
	// ListAccounts returns users joined with their subscription,
	// newest first.
	ListAccounts(ctx context.Context, limit, offset int) ([]*Account, error)

	// Stats aggregates the dashboard summary.
	Stats(ctx context.Context) (*Stats, error)
}
