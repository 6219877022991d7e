// Package accounts owns the relational user accounts and their postal
// addresses. Registration writes the account row and its addresses in one
// transaction.
package accounts

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	ErrNotFound   = errors.New("account not found")
)

// Account is one relational account row.
type Account struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Address is one postal address attached to an account.
type Address struct {
	ID         int64  `json:"id,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// Profile is the caller-visible projection of an account.
type Profile struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Addresses []Address `json:"addresses,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (a Account) Profile(addrs []Address) Profile {
	return Profile{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Addresses: addrs,
		CreatedAt: a.CreatedAt,
	}
}

// Store is the contract for account persistence. Register is atomic: either
// the account and all its addresses land, or nothing does. FindByEmail
// returns (nil, nil) when no account exists.
type Store interface {
	Register(ctx context.Context, a Account, addrs []Address) (Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	AddressesOf(ctx context.Context, accountID int64) ([]Address, error)
	UpdatePassword(ctx context.Context, accountID int64, hash []byte) error
}
