package messages

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/httpserver"
)

// Handlers bundles the message CRUD endpoints.
type Handlers struct {
	store  Store
	log    *zap.Logger
	events *analytics.Publisher
}

func NewHandlers(store Store, log *zap.Logger, events *analytics.Publisher) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{store: store, log: log, events: events}
}

type createMessageRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type renameMessageRequest struct {
	Name string `json:"name"`
}

// List handles GET /messages.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())
	list, err := h.store.List(r.Context())
	if err != nil {
		h.log.Error("list messages", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	if list == nil {
		list = []Message{}
	}
	api.WriteJSON(w, http.StatusOK, list)
}

// Get handles GET /messages/{id}.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")
	m, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.NotFound(w, "MESSAGE_NOT_FOUND", "message not found", rid)
			return
		}
		h.log.Error("get message", zap.Error(err), zap.String("id", id))
		api.Internal(w, rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, m)
}

// Create handles POST /messages.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Email == "" {
		api.Unauthorized(w, "UNAUTHENTICATED", "no credential supplied", rid)
		return
	}

	var req createMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
		return
	}

	m := Message{
		Name:    strings.TrimSpace(req.Name),
		Content: strings.TrimSpace(req.Content),
		Email:   identity.Email,
	}
	if err := m.Validate(); err != nil {
		api.BadRequest(w, "INVALID_INPUT", err.Error(), rid, nil)
		return
	}

	created, err := h.store.Insert(r.Context(), m)
	if err != nil {
		h.log.Error("insert message", zap.Error(err))
		api.Internal(w, rid)
		return
	}

	h.events.Publish(analytics.SubjectMessageSent, "message_sent", identity.Email, nil)
	api.WriteJSON(w, http.StatusCreated, created)
}

// Rename handles PUT /messages/{id}.
func (h *Handlers) Rename(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req renameMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := ValidateName(name); err != nil {
		api.BadRequest(w, "INVALID_INPUT", err.Error(), rid, nil)
		return
	}

	m, err := h.store.UpdateName(r.Context(), id, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.NotFound(w, "MESSAGE_NOT_FOUND", "message not found", rid)
			return
		}
		h.log.Error("rename message", zap.Error(err), zap.String("id", id))
		api.Internal(w, rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, m)
}

// Delete handles DELETE /messages/{id}.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			api.NotFound(w, "MESSAGE_NOT_FOUND", "message not found", rid)
			return
		}
		h.log.Error("delete message", zap.Error(err), zap.String("id", id))
		api.Internal(w, rid)
		return
	}
	api.OK(w, "Message deleted")
}
