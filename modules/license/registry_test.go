package license_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samosalabs/licenseserver/modules/auth"
	"github.com/samosalabs/licenseserver/modules/billing"
	"github.com/samosalabs/licenseserver/modules/license"
)

type stubUsers struct {
	users map[uuid.UUID]*auth.User
}

func (s *stubUsers) GetUser(_ context.Context, id uuid.UUID) (*auth.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

// failingUsageStore delegates everything to the wrapped store but
// refuses to record usage, standing in for a flaky database during
// the tracking update.
type failingUsageStore struct {
	license.Store
}

func (failingUsageStore) RecordUsage(context.Context, uuid.UUID) error {
	return errors.New("usage tracking unavailable")
}

// stubSubs serves subscriptions the way the billing service does,
// flipping lapsed trials to expired on read.
type stubSubs struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*billing.Subscription
}

func newStubSubs() *stubSubs {
	return &stubSubs{subs: make(map[uuid.UUID]*billing.Subscription)}
}

func (s *stubSubs) put(sub *billing.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.UserID] = sub
}

func (s *stubSubs) GetForUser(_ context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	if sub.TrialExpired(time.Now()) {
		sub.Status = billing.StatusExpired
	}
	cp := *sub
	return &cp, nil
}

func trialSub(userID uuid.UUID, endsAt time.Time) *billing.Subscription {
	return &billing.Subscription{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      billing.StatusTrialing,
		SeatCount:   100,
		TrialEndsAt: &endsAt,
	}
}

func paidSub(userID uuid.UUID, status billing.Status) *billing.Subscription {
	return &billing.Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		Status:        status,
		SeatCount:     5,
		ProviderSubID: "sub_" + userID.String()[:8],
	}
}

func newTestRegistry(t *testing.T) (*license.Registry, *license.MemoryStore, *stubSubs) {
	t.Helper()
	store := license.NewMemoryStore()
	subs := newStubSubs()
	return license.NewRegistry(store, subs), store, subs
}

func TestRegistry_Issue(t *testing.T) {
	t.Parallel()

	t.Run("issues a key for an active subscription", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		sub := paidSub(userID, billing.StatusActive)
		subs.put(sub)

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)
		assert.Regexp(t, keyShape, key.Key)
		assert.Equal(t, license.StatusActive, key.Status)
		assert.Equal(t, userID, key.OwnerID)
		assert.Equal(t, sub.ID, key.SubscriptionID)
		assert.Equal(t, sub.SeatCount, key.SeatCount)
		assert.Zero(t, key.UsageCount)
	})

	t.Run("issues a key during a live trial", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(trialSub(userID, time.Now().Add(24*time.Hour)))

		_, err := reg.Issue(context.Background(), userID, 0, "")
		assert.NoError(t, err)
	})

	t.Run("no subscription", func(t *testing.T) {
		t.Parallel()
		reg, _, _ := newTestRegistry(t)

		_, err := reg.Issue(context.Background(), uuid.New(), 0, "")
		assert.ErrorIs(t, err, license.ErrSubscriptionNotUsable)
	})

	t.Run("lapsed trial", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(trialSub(userID, time.Now().Add(-time.Hour)))

		_, err := reg.Issue(context.Background(), userID, 0, "")
		assert.ErrorIs(t, err, license.ErrSubscriptionNotUsable)
	})

	t.Run("canceled subscription", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusCanceled))

		_, err := reg.Issue(context.Background(), userID, 0, "")
		assert.ErrorIs(t, err, license.ErrSubscriptionNotUsable)
	})

	t.Run("explicit seat count is snapshotted", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 3, "")
		require.NoError(t, err)
		assert.Equal(t, 3, key.SeatCount)
	})

	t.Run("seat count above the subscription is refused", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		_, err := reg.Issue(context.Background(), userID, 6, "")
		assert.ErrorIs(t, err, license.ErrInvalidSeatCount)
	})

	t.Run("negative seat count is refused", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		_, err := reg.Issue(context.Background(), userID, -1, "")
		assert.ErrorIs(t, err, license.ErrInvalidSeatCount)
	})

	t.Run("second key is refused", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		_, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		_, err = reg.Issue(context.Background(), userID, 0, "")
		assert.ErrorIs(t, err, license.ErrKeyAlreadyIssued)
	})

	t.Run("revoked key still blocks a new one", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		_, err = reg.Revoke(context.Background(), key.ID)
		require.NoError(t, err)

		_, err = reg.Issue(context.Background(), userID, 0, "")
		assert.ErrorIs(t, err, license.ErrKeyAlreadyIssued)
	})
}

func TestRegistry_Validate(t *testing.T) {
	t.Parallel()

	t.Run("active key validates and records usage", func(t *testing.T) {
		t.Parallel()
		reg, store, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		verdict, err := reg.Validate(context.Background(), key.Key)
		require.NoError(t, err)
		assert.True(t, verdict.Valid)
		assert.False(t, verdict.TrialExpired)
		assert.Empty(t, verdict.Message)
		require.NotNil(t, verdict.License)
		assert.Equal(t, key.Key, verdict.License.Key)
		assert.Equal(t, int64(1), verdict.License.UsageCount)
		require.NotNil(t, verdict.Subscription)
		assert.Equal(t, string(billing.StatusActive), verdict.Subscription.Status)
		assert.Equal(t, 5, verdict.Subscription.SeatCount)

		stored, err := store.GetByID(context.Background(), key.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.UsageCount)
		assert.NotNil(t, stored.LastUsedAt)

		_, err = reg.Validate(context.Background(), key.Key)
		require.NoError(t, err)
		stored, err = store.GetByID(context.Background(), key.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.UsageCount)
	})

	t.Run("usage tracking failure does not flip the verdict", func(t *testing.T) {
		t.Parallel()
		inner := license.NewMemoryStore()
		subs := newStubSubs()
		reg := license.NewRegistry(failingUsageStore{Store: inner}, subs)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		verdict, err := reg.Validate(context.Background(), key.Key)
		require.NoError(t, err)
		assert.True(t, verdict.Valid)
		require.NotNil(t, verdict.License)
		assert.Zero(t, verdict.License.UsageCount)

		stored, err := inner.GetByID(context.Background(), key.ID)
		require.NoError(t, err)
		assert.Zero(t, stored.UsageCount)
		assert.Nil(t, stored.LastUsedAt)
	})

	t.Run("key input is normalized", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		verdict, err := reg.Validate(context.Background(), "  "+key.Key+"\n")
		require.NoError(t, err)
		assert.True(t, verdict.Valid)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()
		reg, _, _ := newTestRegistry(t)

		verdict, err := reg.Validate(context.Background(), "QB-QBYT-0000-0000-0000")
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.False(t, verdict.TrialExpired)
		assert.NotEmpty(t, verdict.Message)
		assert.Nil(t, verdict.License)
	})

	t.Run("malformed key", func(t *testing.T) {
		t.Parallel()
		reg, _, _ := newTestRegistry(t)

		verdict, err := reg.Validate(context.Background(), "not-a-key")
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
	})

	t.Run("revoked key does not validate or count usage", func(t *testing.T) {
		t.Parallel()
		reg, store, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)
		_, err = reg.Revoke(context.Background(), key.ID)
		require.NoError(t, err)

		verdict, err := reg.Validate(context.Background(), key.Key)
		require.NoError(t, err)
		assert.False(t, verdict.Valid)

		stored, err := store.GetByID(context.Background(), key.ID)
		require.NoError(t, err)
		assert.Zero(t, stored.UsageCount)
	})

	t.Run("lapsed trial reports trialExpired and expires the key", func(t *testing.T) {
		t.Parallel()
		reg, store, subs := newTestRegistry(t)
		userID := uuid.New()
		sub := trialSub(userID, time.Now().Add(time.Hour))
		subs.put(sub)

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		// Trial lapses after the key was issued.
		past := time.Now().Add(-time.Hour)
		sub.TrialEndsAt = &past
		subs.put(sub)

		verdict, err := reg.Validate(context.Background(), key.Key)
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.True(t, verdict.TrialExpired)

		stored, err := store.GetByID(context.Background(), key.ID)
		require.NoError(t, err)
		assert.Equal(t, license.StatusExpired, stored.Status)

		// Once the key itself is expired, later validations fall back to
		// the non-disclosing verdict.
		verdict, err = reg.Validate(context.Background(), key.Key)
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.False(t, verdict.TrialExpired)
	})

	t.Run("revoked key under a lapsed trial stays non-disclosing", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		sub := trialSub(userID, time.Now().Add(time.Hour))
		subs.put(sub)

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)
		_, err = reg.Revoke(context.Background(), key.ID)
		require.NoError(t, err)

		past := time.Now().Add(-time.Hour)
		sub.TrialEndsAt = &past
		subs.put(sub)

		verdict, err := reg.Validate(context.Background(), key.Key)
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.False(t, verdict.TrialExpired)
	})

	t.Run("owner summary is attached when a user source is configured", func(t *testing.T) {
		t.Parallel()
		store := license.NewMemoryStore()
		subs := newStubSubs()
		userID := uuid.New()
		users := &stubUsers{users: map[uuid.UUID]*auth.User{
			userID: {ID: userID, Email: "dev@corp.test", FirstName: "Dana", LastName: "Reyes"},
		}}
		reg := license.NewRegistry(store, subs, license.WithUserSource(users))
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		verdict, err := reg.Validate(context.Background(), key.Key)
		require.NoError(t, err)
		require.NotNil(t, verdict.User)
		assert.Equal(t, "dev@corp.test", verdict.User.Email)
		assert.Equal(t, "Dana Reyes", verdict.User.Name)
	})

	t.Run("canceled subscription invalidates the key", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		subs.put(paidSub(userID, billing.StatusCanceled))

		verdict, err := reg.Validate(context.Background(), key.Key)
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.False(t, verdict.TrialExpired)
	})
}

func TestRegistry_Revoke(t *testing.T) {
	t.Parallel()

	t.Run("revokes an active key", func(t *testing.T) {
		t.Parallel()
		reg, store, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		revoked, err := reg.Revoke(context.Background(), key.ID)
		require.NoError(t, err)
		assert.Equal(t, license.StatusRevoked, revoked.Status)

		stored, err := store.GetByID(context.Background(), key.ID)
		require.NoError(t, err)
		assert.Equal(t, license.StatusRevoked, stored.Status)
	})

	t.Run("revoking twice is a no-op", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		_, err = reg.Revoke(context.Background(), key.ID)
		require.NoError(t, err)

		again, err := reg.Revoke(context.Background(), key.ID)
		require.NoError(t, err)
		assert.Equal(t, license.StatusRevoked, again.Status)
	})

	t.Run("expired key cannot be revoked", func(t *testing.T) {
		t.Parallel()
		reg, store, subs := newTestRegistry(t)
		userID := uuid.New()
		sub := paidSub(userID, billing.StatusActive)
		subs.put(sub)

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)
		require.NoError(t, store.ExpireBySubscription(context.Background(), sub.ID))

		_, err = reg.Revoke(context.Background(), key.ID)
		assert.ErrorIs(t, err, license.ErrKeyNotActive)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()
		reg, _, _ := newTestRegistry(t)

		_, err := reg.Revoke(context.Background(), uuid.New())
		assert.ErrorIs(t, err, license.ErrKeyNotFound)
	})
}

func TestRegistry_Reactivate(t *testing.T) {
	t.Parallel()

	t.Run("restores a revoked key", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)
		_, err = reg.Revoke(context.Background(), key.ID)
		require.NoError(t, err)

		restored, err := reg.Reactivate(context.Background(), key.ID)
		require.NoError(t, err)
		assert.Equal(t, license.StatusActive, restored.Status)

		verdict, err := reg.Validate(context.Background(), key.Key)
		require.NoError(t, err)
		assert.True(t, verdict.Valid)
	})

	t.Run("active key cannot be reactivated", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)

		_, err = reg.Reactivate(context.Background(), key.ID)
		assert.ErrorIs(t, err, license.ErrKeyNotRevoked)
	})

	t.Run("expired key stays expired", func(t *testing.T) {
		t.Parallel()
		reg, store, subs := newTestRegistry(t)
		userID := uuid.New()
		sub := paidSub(userID, billing.StatusActive)
		subs.put(sub)

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)
		require.NoError(t, store.ExpireBySubscription(context.Background(), sub.ID))

		_, err = reg.Reactivate(context.Background(), key.ID)
		assert.ErrorIs(t, err, license.ErrKeyNotRevoked)
	})

	t.Run("unusable subscription blocks reactivation", func(t *testing.T) {
		t.Parallel()
		reg, _, subs := newTestRegistry(t)
		userID := uuid.New()
		subs.put(paidSub(userID, billing.StatusActive))

		key, err := reg.Issue(context.Background(), userID, 0, "")
		require.NoError(t, err)
		_, err = reg.Revoke(context.Background(), key.ID)
		require.NoError(t, err)

		subs.put(paidSub(userID, billing.StatusCanceled))

		_, err = reg.Reactivate(context.Background(), key.ID)
		assert.ErrorIs(t, err, license.ErrSubscriptionNotUsable)
	})
}

func TestRegistry_ListForOwner(t *testing.T) {
	t.Parallel()

	reg, _, subs := newTestRegistry(t)
	userID := uuid.New()
	otherID := uuid.New()
	subs.put(paidSub(userID, billing.StatusActive))
	subs.put(paidSub(otherID, billing.StatusActive))

	key, err := reg.Issue(context.Background(), userID, 0, "")
	require.NoError(t, err)
	_, err = reg.Issue(context.Background(), otherID, 0, "")
	require.NoError(t, err)

	keys, err := reg.ListForOwner(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)

	all, err := reg.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
