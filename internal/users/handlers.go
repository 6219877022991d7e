package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/httpserver"
)

// Handlers bundles the signup/signin/profile endpoints.
type Handlers struct {
	store  Store
	issuer auth.Issuer
	log    *zap.Logger
	events *analytics.Publisher
}

func NewHandlers(store Store, issuer auth.Issuer, log *zap.Logger, events *analytics.Publisher) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{store: store, issuer: issuer, log: log, events: events}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Profile   `json:"user"`
}

func validateSignup(req signupRequest) error {
	if n := len(strings.TrimSpace(req.Username)); n < 3 || n > 50 {
		return errors.New("username must be between 3 and 50 characters")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errors.New("invalid email address")
	}
	if len(req.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// Signup handles POST /auth/signup.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	var req signupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateSignup(req); err != nil {
		api.BadRequest(w, "INVALID_INPUT", err.Error(), rid, nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		api.Internal(w, rid)
		return
	}

	created, err := h.store.Insert(r.Context(), User{
		Username:     strings.TrimSpace(req.Username),
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			api.Conflict(w, "EMAIL_TAKEN", "email already registered", rid, nil)
			return
		}
		h.log.Error("insert user", zap.Error(err))
		api.Internal(w, rid)
		return
	}

	h.events.Publish(analytics.SubjectUserRegistered, "user_registered", created.Email, nil)
	api.WriteJSON(w, http.StatusCreated, created.Profile())
}

// Signin handles POST /auth/signin. A wrong email and a wrong password
// produce the same response.
func (h *Handlers) Signin(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	var req signinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	u, err := h.store.FindByEmail(r.Context(), req.Email)
	if err != nil {
		h.log.Error("find user", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	if u == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		api.Unauthorized(w, "INVALID_CREDENTIAL", "invalid email or password", rid)
		return
	}

	token, exp, err := h.issuer.Issue(u.ID, u.Email, time.Now().UTC())
	if err != nil {
		h.log.Error("issue token", zap.Error(err))
		api.Internal(w, rid)
		return
	}

	h.events.Publish(analytics.SubjectUserLoggedIn, "user_logged_in", u.Email, nil)
	api.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: exp, User: u.Profile()})
}

// Me handles GET /auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Email == "" {
		api.Unauthorized(w, "UNAUTHENTICATED", "no credential supplied", rid)
		return
	}

	u, err := h.store.FindByEmail(r.Context(), identity.Email)
	if err != nil {
		h.log.Error("find user", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	if u == nil {
		api.NotFound(w, "USER_NOT_FOUND", "user not found", rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, u.Profile())
}

// Logout handles POST /auth/logout. Tokens are stateless, so this is an
// acknowledgement for clients that want a definite end to the session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	api.OK(w, "Logged out")
}
