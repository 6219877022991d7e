package ratings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the development/test fallback. It enforces the same
// (email, movie_id) uniqueness the Mongo index does.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Record
	pair map[string]string // email|movie_id -> record id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Record), pair: make(map[string]string)}
}

func pairKey(email string, movieID int64) string {
	return fmt.Sprintf("%s|%d", email, movieID)
}

func (s *MemoryStore) Find(_ context.Context, email string, movieID int64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.pair[pairKey(email, movieID)]
	if !ok {
		return nil, nil
	}
	rec := s.byID[id]
	return &rec, nil
}

func (s *MemoryStore) Insert(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(rec.Email, rec.MovieID)
	if _, exists := s.pair[key]; exists {
		return Record{}, ErrDuplicate
	}
	rec.ID = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.byID[rec.ID] = rec
	s.pair[key] = rec.ID
	return rec, nil
}

func (s *MemoryStore) FindByMovie(_ context.Context, movieID int64) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, rec := range s.byID {
		if rec.MovieID == movieID {
			out = append(out, rec)
		}
	}
	return out, nil
}
