package comments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the development/test fallback.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []Comment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.rows = append(s.rows, c)
	return c, nil
}

func (s *MemoryStore) FindByMovie(_ context.Context, movieID int64) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Comment
	// Newest first, matching the Mongo sort.
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].MovieID == movieID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}
