package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voyageai/pkg/db"
)

const (
	sqliteGet    = `SELECT value FROM persistent_state WHERE key = ?`
	sqliteDelete = `DELETE FROM persistent_state WHERE key = ?`
	sqliteUpsert = `INSERT INTO persistent_state (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

// SQLiteStore keeps state rows in the embedded SQLite database opened by pkg/db.
type SQLiteStore struct {
	db  *db.DB
	now func() time.Time
}

func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d, now: time.Now}
}

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool, error) {
	var val sql.NullString
	switch err := s.db.QueryRowContext(ctx, sqliteGet, key).Scan(&val); {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return val.String, true, nil
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	if _, err := s.db.ExecContext(ctx, sqliteUpsert, key, val, s.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, sqliteDelete, key); err != nil {
		return fmt.Errorf("sqlite delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLiteStore) Close() error                   { return s.db.Close() }
