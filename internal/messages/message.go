// Package messages stores short user-to-site messages in the document store.
package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("message not found")

// Message is one user-submitted message. Content is optional; when present it
// must satisfy the length constraints.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the contract for message persistence.
type Store interface {
	Insert(ctx context.Context, m Message) (Message, error)
	List(ctx context.Context) ([]Message, error)
	GetByID(ctx context.Context, id string) (Message, error)
	UpdateName(ctx context.Context, id, name string) (Message, error)
	Delete(ctx context.Context, id string) error
}

// ValidateName checks the name constraint shared by create and rename.
func ValidateName(name string) error {
	if n := len(strings.TrimSpace(name)); n < 3 || n > 100 {
		return fmt.Errorf("name must be between 3 and 100 characters")
	}
	return nil
}

// Validate checks all field constraints on a new message.
func (m Message) Validate() error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	if m.Content != "" {
		if n := len(strings.TrimSpace(m.Content)); n < 10 || n > 1000 {
			return fmt.Errorf("content must be between 10 and 1000 characters")
		}
	}
	return nil
}
