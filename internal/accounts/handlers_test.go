package accounts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/movie-platform/internal/platform/auth"
)

var testIssuer = auth.Issuer{Secret: []byte("test-secret"), TTL: time.Hour}

func postJSON(path, body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
}

const registerBody = `{
	"first_name": "Ada",
	"last_name": "Lovelace",
	"email": "ada@x.com",
	"password": "secret1",
	"addresses": [
		{"street": "1 Main St", "city": "London", "country": "UK", "postal_code": "E1"},
		{"street": "2 Side St", "city": "Leeds", "country": "UK", "postal_code": "L2"}
	]
}`

func TestRegister_PersistsAccountAndAddresses(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandlers(store, testIssuer, nil, nil)

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/users/register", registerBody))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Email != "ada@x.com" || len(got.Addresses) != 2 {
		t.Fatalf("unexpected profile: %+v", got)
	}

	a, _ := store.FindByEmail(context.Background(), "ada@x.com")
	if a == nil {
		t.Fatal("account not stored")
	}
	if bcrypt.CompareHashAndPassword(a.PasswordHash, []byte("secret1")) != nil {
		t.Fatal("stored hash does not verify")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h := NewHandlers(NewMemoryStore(), testIssuer, nil, nil)

	first := httptest.NewRecorder()
	h.Register(first, postJSON("/users/register", registerBody))
	if first.Code != http.StatusCreated {
		t.Fatalf("first register: %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.Register(second, postJSON("/users/register", registerBody))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.Code)
	}
}

func TestRegister_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing first name", `{"last_name":"L","email":"a@x.com","password":"secret1"}`},
		{"missing last name", `{"first_name":"A","email":"a@x.com","password":"secret1"}`},
		{"bad email", `{"first_name":"A","last_name":"L","email":"nope","password":"secret1"}`},
		{"short password", `{"first_name":"A","last_name":"L","email":"a@x.com","password":"123"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandlers(NewMemoryStore(), testIssuer, nil, nil)
			rec := httptest.NewRecorder()
			h.Register(rec, postJSON("/users/register", tc.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandlers(store, testIssuer, nil, nil)

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/users/register", registerBody))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Login(rec, postJSON("/users/login", `{"email":"ada@x.com","password":"secret1"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	id, err := auth.Verifier{Secret: testIssuer.Secret}.Verify(got.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if id.Email != "ada@x.com" {
		t.Fatalf("expected identity ada@x.com, got %q", id.Email)
	}
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	h := NewHandlers(NewMemoryStore(), testIssuer, nil, nil)
	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/users/register", registerBody))

	wrongPass := httptest.NewRecorder()
	h.Login(wrongPass, postJSON("/users/login", `{"email":"ada@x.com","password":"wrong"}`))

	unknown := httptest.NewRecorder()
	h.Login(unknown, postJSON("/users/login", `{"email":"ghost@x.com","password":"secret1"}`))

	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPass.Code, unknown.Code)
	}
	if wrongPass.Body.String() != unknown.Body.String() {
		t.Fatalf("responses must not distinguish the failure cause")
	}
}

func changePasswordRequestFor(body string, email string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/profile/password", strings.NewReader(body))
	if email != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Email: email}))
	}
	return req
}

func TestChangePassword(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandlers(store, testIssuer, nil, nil)

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/users/register", registerBody))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ChangePassword(rec, changePasswordRequestFor(`{"old_password":"secret1","new_password":"secret2"}`, "ada@x.com"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	a, _ := store.FindByEmail(context.Background(), "ada@x.com")
	if bcrypt.CompareHashAndPassword(a.PasswordHash, []byte("secret2")) != nil {
		t.Fatal("new password does not verify")
	}
	if bcrypt.CompareHashAndPassword(a.PasswordHash, []byte("secret1")) == nil {
		t.Fatal("old password still verifies")
	}
}

func TestChangePassword_Rejections(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandlers(store, testIssuer, nil, nil)
	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/users/register", registerBody))

	cases := []struct {
		name  string
		body  string
		email string
		want  int
	}{
		{"no identity", `{"old_password":"secret1","new_password":"secret2"}`, "", http.StatusUnauthorized},
		{"wrong old password", `{"old_password":"nope","new_password":"secret2"}`, "ada@x.com", http.StatusUnauthorized},
		{"same password", `{"old_password":"secret1","new_password":"secret1"}`, "ada@x.com", http.StatusBadRequest},
		{"short new password", `{"old_password":"secret1","new_password":"123"}`, "ada@x.com", http.StatusBadRequest},
		{"unknown account", `{"old_password":"secret1","new_password":"secret2"}`, "ghost@x.com", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ChangePassword(rec, changePasswordRequestFor(tc.body, tc.email))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}
