package movies

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is the development/test fallback. The transaction it hands out
// buffers the aggregate write and applies it on Commit, mirroring the
// rollback semantics of the Postgres store.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]Movie
	seen   map[string][]int64 // email -> movie ids
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, rows: make(map[int64]Movie), seen: make(map[string][]int64)}
}

func (s *MemoryStore) List(_ context.Context) ([]Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Movie, 0, len(s.rows))
	for _, m := range s.rows {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id int64) (Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.rows[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) Create(_ context.Context, title, description string) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Movie{ID: s.nextID, Title: title, Description: description, CreatedAt: time.Now().UTC()}
	s.nextID++
	s.rows[m.ID] = m
	return m, nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, title, description string) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	m.Title = title
	m.Description = description
	s.rows[id] = m
	return m, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *MemoryStore) TopRated(_ context.Context, limit int) ([]Movie, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rated []Movie
	for _, m := range s.rows {
		if m.Rating != nil {
			rated = append(rated, m)
		}
	}
	sort.Slice(rated, func(i, j int) bool { return *rated[i].Rating > *rated[j].Rating })
	if len(rated) > limit {
		rated = rated[:limit]
	}
	return rated, nil
}

func (s *MemoryStore) SeenBy(_ context.Context, email string) ([]Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Movie
	for _, id := range s.seen[email] {
		if m, ok := s.rows[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// MarkSeen records that a user has seen a movie. Test seeding helper.
func (s *MemoryStore) MarkSeen(email string, movieID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[email] = append(s.seen[email], movieID)
}

func (s *MemoryStore) Begin(_ context.Context) (Tx, error) {
	return &memTx{store: s}, nil
}

type memTx struct {
	store   *MemoryStore
	pending []func()
	done    bool
}

func (t *memTx) UpdateAverageRating(_ context.Context, movieID int64, avg float64) error {
	t.store.mu.RLock()
	_, ok := t.store.rows[movieID]
	t.store.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	t.pending = append(t.pending, func() {
		if m, ok := t.store.rows[movieID]; ok {
			v := avg
			m.Rating = &v
			t.store.rows[movieID] = m
		}
	})
	return nil
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, apply := range t.pending {
		apply()
	}
	t.pending = nil
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	t.done = true
	t.pending = nil
	return nil
}
