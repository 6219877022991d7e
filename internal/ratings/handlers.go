package ratings

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/httpserver"
)

type submitRequest struct {
	Rating *float64 `json:"rating"`
}

// SubmitRating handles POST /ratings/{movieId}. The movie id comes from the
// path, the rating value from the body; a valid bearer credential is required.
func SubmitRating(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		id, ok := auth.IdentityFromContext(r.Context())
		if !ok || id.Email == "" {
			api.Unauthorized(w, "UNAUTHENTICATED", "no credential supplied", rid)
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "movieId"))
		movieID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || movieID <= 0 {
			api.BadRequest(w, "INVALID_INPUT", "invalid movie id", rid, nil)
			return
		}

		var req submitRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}

		var value *int
		if req.Rating != nil {
			if math.Trunc(*req.Rating) != *req.Rating {
				api.BadRequest(w, "INVALID_INPUT", "rating must be an integer", rid, nil)
				return
			}
			v := int(*req.Rating)
			value = &v
		}

		if err := agg.Submit(r.Context(), id.Email, movieID, value); err != nil {
			writeSubmitError(w, rid, err)
			return
		}
		api.OK(w, "Rating added successfully")
	}
}

func writeSubmitError(w http.ResponseWriter, requestID string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		api.BadRequest(w, "INVALID_INPUT", err.Error(), requestID, nil)
	case errors.Is(err, ErrUnauthenticated):
		api.Unauthorized(w, "UNAUTHENTICATED", "no credential supplied", requestID)
	case errors.Is(err, ErrMovieNotFound):
		api.NotFound(w, "MOVIE_NOT_FOUND", "movie does not exist", requestID)
	case errors.Is(err, ErrAlreadyRated):
		api.Conflict(w, "ALREADY_RATED", "you have already rated this movie", requestID, nil)
	default:
		api.Internal(w, requestID)
	}
}
