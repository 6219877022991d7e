package comments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/movies"
	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/httpserver"
)

// Catalog is the slice of the movie store the comment handlers need.
type Catalog interface {
	GetByID(ctx context.Context, id int64) (movies.Movie, error)
}

type createRequest struct {
	Username string `json:"username"`
	Title    string `json:"title"`
	Comment  string `json:"comment"`
	Rating   int    `json:"rating"`
}

func parseMovieID(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "movieId"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListComments handles GET /comments/{movieId}.
func ListComments(store Store, catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		movieID, ok := parseMovieID(r)
		if !ok {
			api.BadRequest(w, "INVALID_INPUT", "invalid movie id", rid, nil)
			return
		}
		if _, err := catalog.GetByID(r.Context(), movieID); err != nil {
			if errors.Is(err, movies.ErrNotFound) {
				api.NotFound(w, "MOVIE_NOT_FOUND", "movie does not exist", rid)
				return
			}
			api.Internal(w, rid)
			return
		}

		list, err := store.FindByMovie(r.Context(), movieID)
		if err != nil {
			api.Internal(w, rid)
			return
		}
		if list == nil {
			list = []Comment{}
		}
		api.WriteJSON(w, http.StatusOK, list)
	}
}

// AddComment handles POST /comments/{movieId}.
func AddComment(store Store, catalog Catalog, log *zap.Logger, events *analytics.Publisher) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		id, ok := auth.IdentityFromContext(r.Context())
		if !ok || id.Email == "" {
			api.Unauthorized(w, "UNAUTHENTICATED", "no credential supplied", rid)
			return
		}

		movieID, okID := parseMovieID(r)
		if !okID {
			api.BadRequest(w, "INVALID_INPUT", "invalid movie id", rid, nil)
			return
		}
		if _, err := catalog.GetByID(r.Context(), movieID); err != nil {
			if errors.Is(err, movies.ErrNotFound) {
				api.NotFound(w, "MOVIE_NOT_FOUND", "movie does not exist", rid)
				return
			}
			api.Internal(w, rid)
			return
		}

		var req createRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}

		c := Comment{
			MovieID:  movieID,
			Username: strings.TrimSpace(req.Username),
			Title:    strings.TrimSpace(req.Title),
			Body:     strings.TrimSpace(req.Comment),
			Rating:   req.Rating,
		}
		if err := c.Validate(); err != nil {
			api.BadRequest(w, "INVALID_INPUT", err.Error(), rid, nil)
			return
		}

		created, err := store.Insert(r.Context(), c)
		if err != nil {
			log.Error("insert comment", zap.Error(err), zap.Int64("movie_id", movieID))
			api.Internal(w, rid)
			return
		}

		events.Publish(analytics.SubjectCommentAdded, "comment_added", id.Email, map[string]any{
			"movie_id": movieID,
		})
		api.WriteJSON(w, http.StatusCreated, created)
	}
}
