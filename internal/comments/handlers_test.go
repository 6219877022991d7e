package comments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/movies"
	"github.com/example/movie-platform/internal/platform/auth"
)

func requestFor(t *testing.T, method, movieID, body string, authed bool) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, "/comments/"+movieID, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("movieId", movieID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if authed {
		ctx = auth.WithIdentity(ctx, auth.Identity{Email: "a@x.com"})
	}
	return req.WithContext(ctx)
}

func seedMovie(t *testing.T) *movies.MemoryStore {
	t.Helper()
	catalog := movies.NewMemoryStore()
	if _, err := catalog.Create(context.Background(), "Movie 42", ""); err != nil {
		t.Fatalf("seed movie: %v", err)
	}
	return catalog
}

const validBody = `{"username":"moviefan","title":"Great film","comment":"Really enjoyed the pacing and the ending.","rating":5}`

func TestAddComment_Success(t *testing.T) {
	store := NewMemoryStore()
	handler := AddComment(store, seedMovie(t), nil, nil)

	rec := httptest.NewRecorder()
	handler(rec, requestFor(t, http.MethodPost, "1", validBody, true))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got Comment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == "" || got.Username != "moviefan" || got.Rating != 5 {
		t.Fatalf("unexpected comment: %+v", got)
	}

	list, _ := store.FindByMovie(context.Background(), 1)
	if len(list) != 1 {
		t.Fatalf("expected 1 stored comment, got %d", len(list))
	}
}

func TestAddComment_RequiresIdentity(t *testing.T) {
	handler := AddComment(NewMemoryStore(), seedMovie(t), nil, nil)

	rec := httptest.NewRecorder()
	handler(rec, requestFor(t, http.MethodPost, "1", validBody, false))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAddComment_UnknownMovie(t *testing.T) {
	handler := AddComment(NewMemoryStore(), movies.NewMemoryStore(), nil, nil)

	rec := httptest.NewRecorder()
	handler(rec, requestFor(t, http.MethodPost, "7", validBody, true))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAddComment_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"short username", `{"username":"ab","title":"Great film","comment":"Really enjoyed the pacing here.","rating":4}`, "username"},
		{"short title", `{"username":"moviefan","title":"ab","comment":"Really enjoyed the pacing here.","rating":4}`, "title"},
		{"short comment", `{"username":"moviefan","title":"Great film","comment":"too short","rating":4}`, "comment"},
		{"rating out of range", `{"username":"moviefan","title":"Great film","comment":"Really enjoyed the pacing here.","rating":9}`, "rating"},
		{"missing rating", `{"username":"moviefan","title":"Great film","comment":"Really enjoyed the pacing here."}`, "rating"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AddComment(NewMemoryStore(), seedMovie(t), nil, nil)
			rec := httptest.NewRecorder()
			handler(rec, requestFor(t, http.MethodPost, "1", tc.body, true))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("expected message mentioning %q, got %s", tc.want, rec.Body.String())
			}
		})
	}
}

func TestListComments_NewestFirst(t *testing.T) {
	store := NewMemoryStore()
	catalog := seedMovie(t)
	_, _ = store.Insert(context.Background(), Comment{MovieID: 1, Username: "first", Title: "First take", Body: "The opening act was wonderful.", Rating: 4})
	_, _ = store.Insert(context.Background(), Comment{MovieID: 1, Username: "second", Title: "Second take", Body: "The closing act was even better.", Rating: 5})
	_, _ = store.Insert(context.Background(), Comment{MovieID: 2, Username: "other", Title: "Wrong film", Body: "This belongs to another movie.", Rating: 3})

	handler := ListComments(store, catalog)
	rec := httptest.NewRecorder()
	handler(rec, requestFor(t, http.MethodGet, "1", "", false))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []Comment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Username != "second" || got[1].Username != "first" {
		t.Fatalf("unexpected listing: %+v", got)
	}
}

func TestListComments_EmptyIsArray(t *testing.T) {
	handler := ListComments(NewMemoryStore(), seedMovie(t))
	rec := httptest.NewRecorder()
	handler(rec, requestFor(t, http.MethodGet, "1", "", false))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array body, got %s", rec.Body.String())
	}
}
