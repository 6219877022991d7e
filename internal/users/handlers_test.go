package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/movie-platform/internal/platform/auth"
)

var testIssuer = auth.Issuer{Secret: []byte("test-secret"), TTL: time.Hour}

func postJSON(path, body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
}

func TestSignup_Success(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandlers(store, testIssuer, nil, nil)

	rec := httptest.NewRecorder()
	h.Signup(rec, postJSON("/auth/signup", `{"username":"moviefan","email":"A@X.com","password":"secret1"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Email != "a@x.com" {
		t.Fatalf("expected lowercased email, got %q", got.Email)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password material leaked: %s", rec.Body.String())
	}

	u, _ := store.FindByEmail(context.Background(), "a@x.com")
	if u == nil || len(u.PasswordHash) == 0 {
		t.Fatal("expected stored user with a password hash")
	}
	if strings.Contains(string(u.PasswordHash), "secret1") {
		t.Fatal("password stored in the clear")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	h := NewHandlers(NewMemoryStore(), testIssuer, nil, nil)

	first := httptest.NewRecorder()
	h.Signup(first, postJSON("/auth/signup", `{"username":"moviefan","email":"a@x.com","password":"secret1"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("first signup should succeed, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.Signup(second, postJSON("/auth/signup", `{"username":"otherfan","email":"a@x.com","password":"secret2"}`))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.Code)
	}
}

func TestSignup_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"short username", `{"username":"ab","email":"a@x.com","password":"secret1"}`},
		{"bad email", `{"username":"moviefan","email":"not-an-email","password":"secret1"}`},
		{"short password", `{"username":"moviefan","email":"a@x.com","password":"12345"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandlers(NewMemoryStore(), testIssuer, nil, nil)
			rec := httptest.NewRecorder()
			h.Signup(rec, postJSON("/auth/signup", tc.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSignin_IssuesVerifiableToken(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandlers(store, testIssuer, nil, nil)

	rec := httptest.NewRecorder()
	h.Signup(rec, postJSON("/auth/signup", `{"username":"moviefan","email":"a@x.com","password":"secret1"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Signin(rec, postJSON("/auth/signin", `{"email":"a@x.com","password":"secret1"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Token == "" {
		t.Fatal("expected a token")
	}

	// The gate must accept what signin hands out.
	id, err := auth.Verifier{Secret: testIssuer.Secret}.Verify(got.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if id.Email != "a@x.com" {
		t.Fatalf("expected identity a@x.com, got %q", id.Email)
	}
}

func TestSignin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	h := NewHandlers(NewMemoryStore(), testIssuer, nil, nil)

	rec := httptest.NewRecorder()
	h.Signup(rec, postJSON("/auth/signup", `{"username":"moviefan","email":"a@x.com","password":"secret1"}`))

	wrongPass := httptest.NewRecorder()
	h.Signin(wrongPass, postJSON("/auth/signin", `{"email":"a@x.com","password":"wrong"}`))

	unknown := httptest.NewRecorder()
	h.Signin(unknown, postJSON("/auth/signin", `{"email":"b@x.com","password":"secret1"}`))

	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPass.Code, unknown.Code)
	}
	if wrongPass.Body.String() != unknown.Body.String() {
		t.Fatalf("responses must not distinguish the failure cause:\n%s\n%s", wrongPass.Body.String(), unknown.Body.String())
	}
}

func TestMe(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandlers(store, testIssuer, nil, nil)
	_, _ = store.Insert(context.Background(), User{Username: "moviefan", Email: "a@x.com", PasswordHash: []byte("x")})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Email: "a@x.com"}))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got Profile
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Username != "moviefan" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestMe_NoIdentity(t *testing.T) {
	h := NewHandlers(NewMemoryStore(), testIssuer, nil, nil)
	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
