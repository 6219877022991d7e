package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON serializes v and writes it with the given status code.
// Encoding failures after the header is written can only be logged by the
// caller's middleware; the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message is the acknowledgement body used by mutating endpoints that have
// nothing else to return.
type Message struct {
	Message string `json:"message"`
}

// OK writes a 200 acknowledgement with a human-readable message.
func OK(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, Message{Message: message})
}
