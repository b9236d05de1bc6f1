package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements StateStore on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already migrated pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) GetState(ctx context.Context, key string) (string, bool, error) {
	var val string
	err := s.pool.QueryRow(ctx, "SELECT value FROM persistent_state WHERE key = $1", key).Scan(&val)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *PostgresStore) SetState(ctx context.Context, key, val string) error {
	const q = `INSERT INTO persistent_state (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	_, err := s.pool.Exec(ctx, q, key, val)
	return err
}

func (s *PostgresStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM persistent_state WHERE key = $1", key)
	return err
}
