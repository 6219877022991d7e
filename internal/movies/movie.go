// Package movies owns the relational movie catalog, including the
// denormalized average_rating column the rating aggregator maintains.
package movies

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("movie not found")

// Movie is one catalog row. Rating is the derived mean of all rating records
// for the movie; nil until the first rating lands.
type Movie struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Rating      *float64  `json:"rating"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the contract for movie persistence.
type Store interface {
	List(ctx context.Context) ([]Movie, error)
	GetByID(ctx context.Context, id int64) (Movie, error)
	Create(ctx context.Context, title, description string) (Movie, error)
	Update(ctx context.Context, id int64, title, description string) (Movie, error)
	Delete(ctx context.Context, id int64) error
	TopRated(ctx context.Context, limit int) ([]Movie, error)
	SeenBy(ctx context.Context, email string) ([]Movie, error)
	Begin(ctx context.Context) (Tx, error)
}

// Tx scopes the aggregate write. The transaction is owned by exactly one
// submission; Rollback after Commit is a no-op so it can sit in a defer.
type Tx interface {
	UpdateAverageRating(ctx context.Context, movieID int64, avg float64) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
