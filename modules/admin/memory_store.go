package admin

import (
	"context"
	"sort"
	"sync"

	"github.com/samosalabs/licenseserver/modules/auth"
	"github.com/samosalabs/licenseserver/modules/billing"
	"github.com/samosalabs/licenseserver/modules/license"
)

// MemoryStore is an in-memory Store used in tests. It mirrors the SQL
// aggregation over seeded domain records.
type MemoryStore struct {
	mu       sync.RWMutex
	users    []*auth.User
	subs     map[string]*billing.Subscription // keyed by user ID
	keyCount int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*billing.Subscription)}
}

func (s *MemoryStore) AddUser(user *auth.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users = append(s.users, &cp)
}

func (s *MemoryStore) AddSubscription(sub *billing.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subs[sub.UserID.String()] = &cp
}

func (s *MemoryStore) AddKey(_ *license.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyCount++
}

func (s *MemoryStore) ListAccounts(_ context.Context, limit, offset int) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := make([]*auth.User, len(s.users))
	copy(sorted, s.users)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var accounts []*Account
	for i := offset; i < len(sorted) && len(accounts) < limit; i++ {
		user := sorted[i]
		account := &Account{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			IsAdmin:   user.IsAdmin,
			CreatedAt: user.CreatedAt,
		}
		if sub, ok := s.subs[user.ID.String()]; ok {
			account.SubscriptionStatus = string(sub.Status)
			account.SeatCount = sub.SeatCount
			account.TotalPriceCents = sub.TotalPriceCents
			account.BillingInterval = string(sub.Interval)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalUsers:       int64(len(s.users)),
		TotalLicenseKeys: s.keyCount,
	}
	for _, sub := range s.subs {
		switch sub.Status {
		case billing.StatusActive:
			stats.ActiveSubscriptions++
			switch sub.Interval {
			case billing.IntervalMonth:
				stats.MonthlyRevenueCents += sub.TotalPriceCents
			case billing.IntervalYear:
				stats.MonthlyRevenueCents += sub.TotalPriceCents / 12
			}
		case billing.StatusTrialing:
			stats.TrialSubscriptions++
		}
	}
	return stats, nil
}
