package ratings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/movies"
	"github.com/example/movie-platform/internal/platform/analytics"
)

// Failure taxonomy of a submission. Every failure is classified here; callers
// match with errors.Is and never see raw collaborator errors.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMovieNotFound   = errors.New("movie does not exist")
	ErrAlreadyRated    = errors.New("already rated")
	ErrStorage         = errors.New("storage failure")
)

// MovieCatalog is the slice of the relational collaborator the aggregator
// needs: point lookup plus a transaction scoping the aggregate write.
type MovieCatalog interface {
	GetByID(ctx context.Context, id int64) (movies.Movie, error)
	Begin(ctx context.Context) (movies.Tx, error)
}

// Aggregator accepts rating submissions and keeps a movie's derived average
// consistent with the set of individual rating records. It holds no state of
// its own; all coordination is pushed to the two stores' native concurrency
// control.
type Aggregator struct {
	movies MovieCatalog
	store  Store
	log    *zap.Logger
	events *analytics.Publisher
}

func NewAggregator(catalog MovieCatalog, store Store, log *zap.Logger, events *analytics.Publisher) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{movies: catalog, store: store, log: log, events: events}
}

// Submit runs the full submission protocol for one rating. value is nil when
// the request carried no rating at all; that case is reported separately from
// an out-of-range value. The five steps execute strictly in order and nothing
// is retried.
//
// The rating record and the aggregate live in different stores, so they are
// not covered by one transaction: a failure after the record insert leaves a
// committed record with a stale aggregate. That exit is always classified as
// a storage failure, never as success. A reconciliation pass is the accepted
// recovery path for the resulting drift.
func (a *Aggregator) Submit(ctx context.Context, email string, movieID int64, value *int) error {
	if movieID <= 0 {
		return fmt.Errorf("%w: invalid movie id", ErrInvalidInput)
	}
	if value == nil {
		return fmt.Errorf("%w: rating is required", ErrInvalidInput)
	}
	if *value < 1 || *value > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	// Enforced upstream by the authentication gate; re-checked here so the
	// aggregator is safe to call from any entry point.
	if strings.TrimSpace(email) == "" {
		return ErrUnauthenticated
	}

	if _, err := a.movies.GetByID(ctx, movieID); err != nil {
		if errors.Is(err, movies.ErrNotFound) {
			return ErrMovieNotFound
		}
		return fmt.Errorf("%w: look up movie %d: %v", ErrStorage, movieID, err)
	}

	existing, err := a.store.Find(ctx, email, movieID)
	if err != nil {
		return fmt.Errorf("%w: check existing rating: %v", ErrStorage, err)
	}
	if existing != nil {
		return ErrAlreadyRated
	}

	tx, err := a.movies.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrStorage, err)
	}
	// Released on every exit path; Rollback after Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := a.store.Insert(ctx, Record{
		Email:     email,
		MovieID:   movieID,
		Value:     *value,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// A concurrent submission won the race; the store's unique
			// constraint is the tie-break.
			return ErrAlreadyRated
		}
		return fmt.Errorf("%w: insert rating: %v", ErrStorage, err)
	}

	all, err := a.store.FindByMovie(ctx, movieID)
	if err != nil {
		return fmt.Errorf("%w: read back ratings: %v", ErrStorage, err)
	}
	if len(all) == 0 {
		// The record inserted above must be visible; an empty read-back
		// means the document store is lying to us.
		return fmt.Errorf("%w: read back returned no ratings for movie %d", ErrStorage, movieID)
	}

	// Sum as exact integers, divide as floating point; the full-precision
	// mean is stored without rounding.
	var sum int64
	for _, rec := range all {
		sum += int64(rec.Value)
	}
	avg := float64(sum) / float64(len(all))

	if err := tx.UpdateAverageRating(ctx, movieID, avg); err != nil {
		return fmt.Errorf("%w: write aggregate: %v", ErrStorage, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit aggregate: %v", ErrStorage, err)
	}

	a.log.Info("rating accepted",
		zap.Int64("movie_id", movieID),
		zap.Int("value", *value),
		zap.Float64("average", avg),
		zap.Int("count", len(all)),
	)
	a.events.Publish(analytics.SubjectRatingSubmitted, "rating_submitted", email, map[string]any{
		"movie_id": movieID,
		"value":    *value,
	})
	return nil
}
