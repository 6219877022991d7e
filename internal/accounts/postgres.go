package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists accounts in the "accounts" table and their addresses
// in "addresses".
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) Register(ctx context.Context, a Account, addrs []Address) (Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO accounts (first_name, last_name, email, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		a.FirstName, a.LastName, a.Email, a.PasswordHash,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrEmailTaken
		}
		return Account{}, fmt.Errorf("insert account: %w", err)
	}

	for _, addr := range addrs {
		_, err := tx.Exec(ctx,
			`INSERT INTO addresses (account_id, street, city, country, postal_code)
			 VALUES ($1, $2, $3, $4, $5)`,
			a.ID, addr.Street, addr.City, addr.Country, addr.PostalCode,
		)
		if err != nil {
			return Account{}, fmt.Errorf("insert address: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, password_hash, created_at
		 FROM accounts WHERE email = $1`,
		email,
	).Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) AddressesOf(ctx context.Context, accountID int64) ([]Address, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, street, city, country, postal_code
		 FROM addresses WHERE account_id = $1 ORDER BY id`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		var addr Address
		if err := rows.Scan(&addr.ID, &addr.Street, &addr.City, &addr.Country, &addr.PostalCode); err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, accountID int64, hash []byte) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $1 WHERE id = $2`,
		hash, accountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
