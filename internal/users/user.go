// Package users owns the document-store user identities behind signup and
// signin. These are distinct from the relational accounts; the two identity
// systems coexist and issue the same kind of bearer credential.
package users

import (
	"context"
	"errors"
	"time"
)

var ErrEmailTaken = errors.New("email already registered")

// User is one stored identity. PasswordHash is a bcrypt digest and never
// leaves the package.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Profile is the caller-visible projection of a user.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

// Store is the contract for user persistence. FindByEmail returns (nil, nil)
// when no user exists; Insert returns ErrEmailTaken on a duplicate email.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Insert(ctx context.Context, u User) (User, error)
}
