package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samosalabs/licenseserver/modules/admin"
	"github.com/samosalabs/licenseserver/modules/auth"
	"github.com/samosalabs/licenseserver/modules/billing"
	"github.com/samosalabs/licenseserver/modules/license"
)

func seedUser(store *admin.MemoryStore, email string, createdAt time.Time) *auth.User {
	user := &auth.User{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: createdAt,
	}
	store.AddUser(user)
	return user
}

func TestService_ListAccounts(t *testing.T) {
	t.Parallel()

	store := admin.NewMemoryStore()
	svc := admin.NewService(store)

	now := time.Now().UTC()
	older := seedUser(store, "older@example.com", now.Add(-time.Hour))
	newer := seedUser(store, "newer@example.com", now)

	store.AddSubscription(&billing.Subscription{
		ID:              uuid.New(),
		UserID:          newer.ID,
		Status:          billing.StatusActive,
		Interval:        billing.IntervalMonth,
		SeatCount:       4,
		TotalPriceCents: 2000,
	})

	accounts, err := svc.ListAccounts(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	// Newest first, with subscription context attached.
	assert.Equal(t, newer.ID, accounts[0].ID)
	assert.Equal(t, "active", accounts[0].SubscriptionStatus)
	assert.Equal(t, 4, accounts[0].SeatCount)
	assert.Equal(t, int64(2000), accounts[0].TotalPriceCents)

	assert.Equal(t, older.ID, accounts[1].ID)
	assert.Empty(t, accounts[1].SubscriptionStatus)

	page, err := svc.ListAccounts(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, older.ID, page[0].ID)
}

func TestService_Stats(t *testing.T) {
	t.Parallel()

	store := admin.NewMemoryStore()
	svc := admin.NewService(store)

	now := time.Now().UTC()
	monthly := seedUser(store, "monthly@example.com", now)
	yearly := seedUser(store, "yearly@example.com", now)
	trial := seedUser(store, "trial@example.com", now)
	seedUser(store, "nosub@example.com", now)

	store.AddSubscription(&billing.Subscription{
		ID: uuid.New(), UserID: monthly.ID,
		Status: billing.StatusActive, Interval: billing.IntervalMonth,
		SeatCount: 3, TotalPriceCents: 1500,
	})
	store.AddSubscription(&billing.Subscription{
		ID: uuid.New(), UserID: yearly.ID,
		Status: billing.StatusActive, Interval: billing.IntervalYear,
		SeatCount: 2, TotalPriceCents: 12000,
	})
	store.AddSubscription(&billing.Subscription{
		ID: uuid.New(), UserID: trial.ID,
		Status: billing.StatusTrialing, SeatCount: 100,
	})

	store.AddKey(&license.Key{ID: uuid.New()})
	store.AddKey(&license.Key{ID: uuid.New()})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.ActiveSubscriptions)
	assert.Equal(t, int64(1), stats.TrialSubscriptions)
	assert.Equal(t, int64(2), stats.TotalLicenseKeys)

	// 1500 monthly plus 12000/12 yearly.
	assert.Equal(t, int64(2500), stats.MonthlyRevenueCents)
}
