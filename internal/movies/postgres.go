package movies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists movies in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by Postgres.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const movieColumns = `id, title, description, rating, created_at`

func (s *PostgresStore) List(ctx context.Context) ([]Movie, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovies(rows)
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (Movie, error) {
	var m Movie
	err := s.pool.QueryRow(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = $1`, id).
		Scan(&m.ID, &m.Title, &m.Description, &m.Rating, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movie{}, ErrNotFound
		}
		return Movie{}, err
	}
	return m, nil
}

func (s *PostgresStore) Create(ctx context.Context, title, description string) (Movie, error) {
	var m Movie
	err := s.pool.QueryRow(ctx,
		`INSERT INTO movies (title, description) VALUES ($1, $2) RETURNING `+movieColumns,
		title, description).
		Scan(&m.ID, &m.Title, &m.Description, &m.Rating, &m.CreatedAt)
	return m, err
}

func (s *PostgresStore) Update(ctx context.Context, id int64, title, description string) (Movie, error) {
	var m Movie
	err := s.pool.QueryRow(ctx,
		`UPDATE movies SET title = $1, description = $2 WHERE id = $3 RETURNING `+movieColumns,
		title, description, id).
		Scan(&m.ID, &m.Title, &m.Description, &m.Rating, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movie{}, ErrNotFound
		}
		return Movie{}, err
	}
	return m, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TopRated(ctx context.Context, limit int) ([]Movie, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE rating IS NOT NULL ORDER BY rating DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovies(rows)
}

func (s *PostgresStore) SeenBy(ctx context.Context, email string) ([]Movie, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.title, m.description, m.rating, m.created_at
		 FROM seen_movies s JOIN movies m ON s.movie_id = m.id
		 WHERE s.email = $1
		 ORDER BY m.id`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovies(rows)
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) UpdateAverageRating(ctx context.Context, movieID int64, avg float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE movies SET rating = $1 WHERE id = $2`, avg, movieID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

// Rollback after Commit returns pgx.ErrTxClosed, which is swallowed so the
// deferred rollback on the success path stays silent.
func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func scanMovies(rows pgx.Rows) ([]Movie, error) {
	var out []Movie
	for rows.Next() {
		var m Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Rating, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
