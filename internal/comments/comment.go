// Package comments stores user commentary on movies in the document store.
// Comments are free-form and carry their own star value, independent of the
// aggregated movie rating.
package comments

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Comment is one piece of user commentary on a movie.
type Comment struct {
	ID        string    `json:"id"`
	MovieID   int64     `json:"movie_id"`
	Username  string    `json:"username"`
	Title     string    `json:"title"`
	Body      string    `json:"comment"`
	Rating    int       `json:"rating"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the contract for comment persistence.
type Store interface {
	Insert(ctx context.Context, c Comment) (Comment, error)
	FindByMovie(ctx context.Context, movieID int64) ([]Comment, error)
}

// Validate checks the field constraints on a new comment.
func (c Comment) Validate() error {
	if n := len(strings.TrimSpace(c.Username)); n < 3 || n > 50 {
		return fmt.Errorf("username must be between 3 and 50 characters")
	}
	if n := len(strings.TrimSpace(c.Title)); n < 3 || n > 100 {
		return fmt.Errorf("title must be between 3 and 100 characters")
	}
	if n := len(strings.TrimSpace(c.Body)); n < 10 || n > 1000 {
		return fmt.Errorf("comment must be between 10 and 1000 characters")
	}
	if c.Rating < 1 || c.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	return nil
}
