package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for single-instance deployments and
// tests. Expired timestamps are pruned on access and by a background
// sweep.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a MemoryStore with a one-minute cleanup sweep.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string][]time.Time),
		stop:    make(chan struct{}),
	}
	go s.cleanupLoop(time.Minute)
	return s
}

func (s *MemoryStore) RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	valid := s.windows[key][:0]
	for _, ts := range s.windows[key] {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= limit {
		s.windows[key] = valid
		return false, int64(len(valid)), nil
	}

	valid = append(valid, now)
	s.windows[key] = valid
	return true, int64(len(valid)), nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, ts := range s.windows {
				if len(ts) == 0 || !ts[len(ts)-1].After(time.Now().Add(-interval)) {
					delete(s.windows, key)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
