package movies

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/cache"
	"github.com/example/movie-platform/internal/platform/httpserver"
)

const (
	topRatedCacheKey = "movies:top"
	topRatedCacheTTL = 30 * time.Second
)

type movieRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// parseMovieID extracts and validates the {id} route parameter.
func parseMovieID(r *http.Request, param string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListMovies handles GET /movies
func ListMovies(s Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.List(r.Context())
		if err != nil {
			api.Internal(w, httpserver.RequestIDFromContext(r.Context()))
			return
		}
		if out == nil {
			out = []Movie{}
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// GetMovie handles GET /movies/{id}
func GetMovie(s Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseMovieID(r, "id")
		if !ok {
			api.BadRequest(w, "INVALID_INPUT", "invalid movie id", "", nil)
			return
		}
		m, err := s.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				api.NotFound(w, "MOVIE_NOT_FOUND", "movie does not exist", "")
				return
			}
			api.Internal(w, httpserver.RequestIDFromContext(r.Context()))
			return
		}
		api.WriteJSON(w, http.StatusOK, m)
	}
}

// CreateMovie handles POST /movies
func CreateMovie(s Store, c *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req movieRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			api.BadRequest(w, "INVALID_INPUT", "title is required", "", nil)
			return
		}
		m, err := s.Create(r.Context(), req.Title, req.Description)
		if err != nil {
			api.Internal(w, httpserver.RequestIDFromContext(r.Context()))
			return
		}
		c.Invalidate(r.Context(), topRatedCacheKey)
		api.WriteJSON(w, http.StatusCreated, m)
	}
}

// UpdateMovie handles PUT /movies/{id}
func UpdateMovie(s Store, c *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseMovieID(r, "id")
		if !ok {
			api.BadRequest(w, "INVALID_INPUT", "invalid movie id", "", nil)
			return
		}
		var req movieRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			api.BadRequest(w, "INVALID_INPUT", "title is required", "", nil)
			return
		}
		m, err := s.Update(r.Context(), id, req.Title, req.Description)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				api.NotFound(w, "MOVIE_NOT_FOUND", "movie does not exist", "")
				return
			}
			api.Internal(w, httpserver.RequestIDFromContext(r.Context()))
			return
		}
		c.Invalidate(r.Context(), topRatedCacheKey)
		api.WriteJSON(w, http.StatusOK, m)
	}
}

// DeleteMovie handles DELETE /movies/{id}
func DeleteMovie(s Store, c *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseMovieID(r, "id")
		if !ok {
			api.BadRequest(w, "INVALID_INPUT", "invalid movie id", "", nil)
			return
		}
		if err := s.Delete(r.Context(), id); err != nil {
			if errors.Is(err, ErrNotFound) {
				api.NotFound(w, "MOVIE_NOT_FOUND", "movie does not exist", "")
				return
			}
			api.Internal(w, httpserver.RequestIDFromContext(r.Context()))
			return
		}
		c.Invalidate(r.Context(), topRatedCacheKey)
		api.OK(w, "Movie deleted successfully")
	}
}

// TopRatedMovies handles GET /movies/top. Results pass through the Redis
// cache; a nil cache degrades to hitting the store every time.
func TopRatedMovies(s Store, c *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cached []Movie
		if c.GetJSON(r.Context(), topRatedCacheKey, &cached) {
			api.WriteJSON(w, http.StatusOK, cached)
			return
		}
		out, err := s.TopRated(r.Context(), 10)
		if err != nil {
			api.Internal(w, httpserver.RequestIDFromContext(r.Context()))
			return
		}
		if out == nil {
			out = []Movie{}
		}
		c.SetJSON(r.Context(), topRatedCacheKey, out, topRatedCacheTTL)
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// SeenMovies handles GET /movies/seen for the authenticated user.
func SeenMovies(s Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok || id.Email == "" {
			api.Unauthorized(w, "UNAUTHENTICATED", "no credential supplied", "")
			return
		}
		out, err := s.SeenBy(r.Context(), id.Email)
		if err != nil {
			api.Internal(w, httpserver.RequestIDFromContext(r.Context()))
			return
		}
		if out == nil {
			out = []Movie{}
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}
