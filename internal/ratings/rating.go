// Package ratings implements rating ingestion: one immutable rating record
// per (user, movie) pair in the document store, plus the aggregate mean kept
// in the relational movie catalog.
package ratings

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned by Store.Insert when the (email, movie_id) unique
// constraint is violated. It is the authoritative tie-break when two
// submissions race past the duplicate pre-check.
var ErrDuplicate = errors.New("rating already exists")

// Record is one user's single rating for one movie. Never mutated after
// creation; there is no edit or delete path.
type Record struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	MovieID   int64     `json:"movie_id"`
	Value     int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the contract for rating record persistence.
type Store interface {
	// Find returns the record for (email, movieID), or nil when absent.
	Find(ctx context.Context, email string, movieID int64) (*Record, error)
	// Insert stores a new record. ErrDuplicate signals a concurrent insert
	// for the same pair.
	Insert(ctx context.Context, rec Record) (Record, error)
	// FindByMovie returns every record for a movie.
	FindByMovie(ctx context.Context, movieID int64) ([]Record, error)
}
