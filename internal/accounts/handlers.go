package accounts

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/httpserver"
)

// Handlers bundles the account registration, login and password endpoints.
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

type registerRequest struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Addresses []Address `json:"addresses"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   Profile   `json:"account"`
}

func validateRegister(req registerRequest) error {
	if strings.TrimSpace(req.FirstName) == "" {
		return errors.New("first name is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		return errors.New("last name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errors.New("invalid email address")
	}
	if len(req.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// Register handles POST /users/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateRegister(req); err != nil {
		api.BadRequest(w, "INVALID_INPUT", err.Error(), rid, nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		api.Internal(w, rid)
		return
	}

	created, err := h.store.Register(r.Context(), Account{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        req.Email,
		PasswordHash: hash,
	}, req.Addresses)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			api.Conflict(w, "EMAIL_TAKEN", "email already registered", rid, nil)
			return
		}
		h.log.Error("register account", zap.Error(err))
		api.Internal(w, rid)
		return
	}

	addrs, err := h.store.AddressesOf(r.Context(), created.ID)
	if err != nil {
		h.log.Warn("load addresses", zap.Error(err), zap.Int64("account_id", created.ID))
	}

	h.events.Publish(analytics.SubjectUserRegistered, "account_registered", created.Email, nil)
	api.WriteJSON(w, http.StatusCreated, created.Profile(addrs))
}

// Login handles POST /users/login. A wrong email and a wrong password produce
// the same response.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	a, err := h.store.FindByEmail(r.Context(), req.Email)
	if err != nil {
		h.log.Error("find account", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	if a == nil || bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(req.Password)) != nil {
		api.Unauthorized(w, "INVALID_CREDENTIAL", "invalid email or password", rid)
		return
	}

	token, exp, err := h.issuer.Issue(strconv.FormatInt(a.ID, 10), a.Email, time.Now().UTC())
	if err != nil {
		h.log.Error("issue token", zap.Error(err))
		api.Internal(w, rid)
		return
	}

	addrs, err := h.store.AddressesOf(r.Context(), a.ID)
	if err != nil {
		h.log.Warn("load addresses", zap.Error(err), zap.Int64("account_id", a.ID))
	}

	h.events.Publish(analytics.SubjectUserLoggedIn, "account_logged_in", a.Email, nil)
	api.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: exp, Account: a.Profile(addrs)})
}

// ChangePassword handles PUT /profile/password. The old password must verify,
// and the new one must actually be new.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Email == "" {
		api.Unauthorized(w, "UNAUTHENTICATED", "no credential supplied", rid)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
		return
	}
	if len(req.NewPassword) < 6 {
		api.BadRequest(w, "INVALID_INPUT", "password must be at least 6 characters", rid, nil)
		return
	}
	if req.NewPassword == req.OldPassword {
		api.BadRequest(w, "INVALID_INPUT", "new password must differ from the old one", rid, nil)
		return
	}

	a, err := h.store.FindByEmail(r.Context(), identity.Email)
	if err != nil {
		h.log.Error("find account", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	if a == nil {
		api.NotFound(w, "ACCOUNT_NOT_FOUND", "account not found", rid)
		return
	}
	if bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(req.OldPassword)) != nil {
		api.Unauthorized(w, "INVALID_CREDENTIAL", "old password is incorrect", rid)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	if err := h.store.UpdatePassword(r.Context(), a.ID, hash); err != nil {
		h.log.Error("update password", zap.Error(err), zap.Int64("account_id", a.ID))
		api.Internal(w, rid)
		return
	}
	api.OK(w, "Password updated")
}
