package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory Storage used in tests and local
// development without a database.
type MemoryStorage struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]*User
	emails map[string]uuid.UUID
	tokens map[string]*Token
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:  make(map[uuid.UUID]*User),
		emails: make(map[string]uuid.UUID),
		tokens: make(map[string]*Token),
	}
}

func (s *MemoryStorage) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[user.Email]; ok {
		return ErrEmailAlreadyTaken
	}
	cp := *user
	s.users[user.ID] = &cp
	s.emails[user.Email] = user.ID
	return nil
}

func (s *MemoryStorage) UpdateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if user.Email != existing.Email {
		if _, taken := s.emails[user.Email]; taken {
			return ErrEmailAlreadyTaken
		}
		delete(s.emails, existing.Email)
		s.emails[user.Email] = user.ID
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStorage) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStorage) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStorage) CreateToken(_ context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[token.Token] = &cp
	return nil
}

func (s *MemoryStorage) GetToken(_ context.Context, raw string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[raw]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *token
	return &cp, nil
}

func (s *MemoryStorage) DeleteToken(_ context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[raw]; !ok {
		return ErrTokenNotFound
	}
	delete(s.tokens, raw)
	return nil
}

func (s *MemoryStorage) DeleteExpiredTokens(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for raw, token := range s.tokens {
		if now.After(token.ExpiresAt) {
			delete(s.tokens, raw)
		}
	}
	return nil
}
