package movies

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/auth"
)

func requestWithID(t *testing.T, method, id, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, "/movies/"+id, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	if id != "" {
		rctx.URLParams.Add("id", id)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateAndGetMovie(t *testing.T) {
	store := NewMemoryStore()

	rec := httptest.NewRecorder()
	CreateMovie(store, nil)(rec, requestWithID(t, http.MethodPost, "", `{"title":"Movie 42","description":"A film"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created Movie
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || created.Rating != nil {
		t.Fatalf("unexpected movie: %+v", created)
	}

	rec = httptest.NewRecorder()
	GetMovie(store)(rec, requestWithID(t, http.MethodGet, "1", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateMovie_RequiresTitle(t *testing.T) {
	rec := httptest.NewRecorder()
	CreateMovie(NewMemoryStore(), nil)(rec, requestWithID(t, http.MethodPost, "", `{"description":"no title"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetMovie_NotFoundAndBadID(t *testing.T) {
	store := NewMemoryStore()

	rec := httptest.NewRecorder()
	GetMovie(store)(rec, requestWithID(t, http.MethodGet, "9", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	GetMovie(store)(rec, requestWithID(t, http.MethodGet, "abc", ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateAndDeleteMovie(t *testing.T) {
	store := NewMemoryStore()
	_, _ = store.Create(context.Background(), "Old title", "")

	rec := httptest.NewRecorder()
	UpdateMovie(store, nil)(rec, requestWithID(t, http.MethodPut, "1", `{"title":"New title"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	m, _ := store.GetByID(context.Background(), 1)
	if m.Title != "New title" {
		t.Fatalf("expected renamed movie, got %+v", m)
	}

	rec = httptest.NewRecorder()
	DeleteMovie(store, nil)(rec, requestWithID(t, http.MethodDelete, "1", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if _, err := store.GetByID(context.Background(), 1); err == nil {
		t.Fatal("expected movie to be gone")
	}
}

func TestListMovies_EmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	ListMovies(NewMemoryStore())(rec, httptest.NewRequest(http.MethodGet, "/movies", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestTopRatedMovies_OrdersByAggregate(t *testing.T) {
	store := NewMemoryStore()
	for _, title := range []string{"Low", "High", "Mid", "Unrated"} {
		_, _ = store.Create(context.Background(), title, "")
	}
	setRating := func(id int64, avg float64) {
		tx, _ := store.Begin(context.Background())
		_ = tx.UpdateAverageRating(context.Background(), id, avg)
		_ = tx.Commit(context.Background())
	}
	setRating(1, 2.0)
	setRating(2, 4.5)
	setRating(3, 3.0)

	rec := httptest.NewRecorder()
	TopRatedMovies(store, nil)(rec, httptest.NewRequest(http.MethodGet, "/movies/top", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []Movie
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("unrated movies must be excluded, got %d entries", len(got))
	}
	if got[0].Title != "High" || got[1].Title != "Mid" || got[2].Title != "Low" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestSeenMovies(t *testing.T) {
	store := NewMemoryStore()
	m, _ := store.Create(context.Background(), "Seen one", "")
	_, _ = store.Create(context.Background(), "Unseen one", "")
	store.MarkSeen("a@x.com", m.ID)

	req := httptest.NewRequest(http.MethodGet, "/movies/seen", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Email: "a@x.com"}))
	rec := httptest.NewRecorder()
	SeenMovies(store)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []Movie
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got) != 1 || got[0].Title != "Seen one" {
		t.Fatalf("unexpected listing: %+v", got)
	}
}

func TestSeenMovies_NoIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	SeenMovies(NewMemoryStore())(rec, httptest.NewRequest(http.MethodGet, "/movies/seen", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMemoryTxRollbackDiscardsAggregate(t *testing.T) {
	store := NewMemoryStore()
	m, _ := store.Create(context.Background(), "Movie 42", "")

	tx, _ := store.Begin(context.Background())
	if err := tx.UpdateAverageRating(context.Background(), m.ID, 4.0); err != nil {
		t.Fatalf("update: %v", err)
	}
	_ = tx.Rollback(context.Background())

	got, _ := store.GetByID(context.Background(), m.ID)
	if got.Rating != nil {
		t.Fatalf("rollback must discard the write, got %v", *got.Rating)
	}
}
