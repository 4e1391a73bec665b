package billing

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and local development
// without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Subscription
	byUser map[uuid.UUID]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[uuid.UUID]*Subscription),
		byUser: make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryStore) Create(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[sub.UserID]; ok {
		return ErrSubscriptionAlreadyExists
	}
	cp := *sub
	s.byID[sub.ID] = &cp
	s.byUser[sub.UserID] = sub.ID
	return nil
}

func (s *MemoryStore) Update(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sub.ID]; !ok {
		return ErrSubscriptionNotFound
	}
	cp := *sub
	s.byID[sub.ID] = &cp
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.byID[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *MemoryStore) GetByUserID(_ context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUser[userID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) GetByProviderSubID(_ context.Context, providerSubID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if providerSubID == "" {
		return nil, ErrSubscriptionNotFound
	}
	for _, sub := range s.byID {
		if sub.ProviderSubID == providerSubID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}
