package accounts

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the development/test fallback.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]Account
	byEmail map[string]int64
	addrs   map[int64][]Address
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:  1,
		byID:    make(map[int64]Account),
		byEmail: make(map[string]int64),
		addrs:   make(map[int64][]Address),
	}
}

func (s *MemoryStore) Register(_ context.Context, a Account, addrs []Address) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[a.Email]; exists {
		return Account{}, ErrEmailTaken
	}
	a.ID = s.nextID
	s.nextID++
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.byID[a.ID] = a
	s.byEmail[a.Email] = a.ID
	for i, addr := range addrs {
		addr.ID = int64(i + 1)
		s.addrs[a.ID] = append(s.addrs[a.ID], addr)
	}
	return a, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	a := s.byID[id]
	return &a, nil
}

func (s *MemoryStore) AddressesOf(_ context.Context, accountID int64) ([]Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Address(nil), s.addrs[accountID]...), nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, accountID int64, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[accountID]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = hash
	s.byID[accountID] = a
	return nil
}
