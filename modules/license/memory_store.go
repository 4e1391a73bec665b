package license

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and local development
// without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*Key
	byKey   map[string]uuid.UUID
	byOwner map[uuid.UUID]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[uuid.UUID]*Key),
		byKey:   make(map[string]uuid.UUID),
		byOwner: make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryStore) Create(_ context.Context, key *Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[key.Key]; ok {
		return ErrDuplicateKey
	}
	if _, ok := s.byOwner[key.OwnerID]; ok {
		return ErrKeyAlreadyIssued
	}
	cp := *key
	s.byID[key.ID] = &cp
	s.byKey[key.Key] = key.ID
	s.byOwner[key.OwnerID] = key.ID
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byID[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := *key
	return &cp, nil
}

func (s *MemoryStore) GetByKey(_ context.Context, raw string) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[raw]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []*Key
	for _, key := range s.byID {
		if key.OwnerID == ownerID {
			cp := *key
			keys = append(keys, &cp)
		}
	}
	sortNewestFirst(keys)
	return keys, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]*Key, 0, len(s.byID))
	for _, key := range s.byID {
		cp := *key
		keys = append(keys, &cp)
	}
	sortNewestFirst(keys)
	return keys, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return ErrKeyNotFound
	}
	key.Status = status
	key.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) RecordUsage(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return ErrKeyNotFound
	}
	now := time.Now().UTC()
	key.UsageCount++
	key.LastUsedAt = &now
	return nil
}

func (s *MemoryStore) ExpireBySubscription(_ context.Context, subscriptionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, key := range s.byID {
		if key.SubscriptionID == subscriptionID && key.Status != StatusExpired {
			key.Status = StatusExpired
			key.UpdatedAt = now
		}
	}
	return nil
}

func sortNewestFirst(keys []*Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
}
