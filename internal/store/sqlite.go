package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	key   TEXT NOT NULL UNIQUE,
	value BLOB NOT NULL
)`

// SQLite keeps one row per key. Like Shelf, every Set is durable on return;
// rows keep their original id on update, so Items follows insertion order.
type SQLite[V any] struct {
	path   string
	db     *sql.DB
	logger *zap.Logger
}

var _ Store[struct{}] = (*SQLite[struct{}])(nil)

func (s *SQLite[V]) Open(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: create directory: %w", err)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		s.logger.Debug("failed to set busy_timeout", zap.Error(err))
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return fmt.Errorf("store: init schema: %w", err)
	}
	s.db = db
	s.logger.Debug("store opened")
	return nil
}

func (s *SQLite[V]) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	s.logger.Debug("store closed")
	return nil
}

func (s *SQLite[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if s.db == nil {
		return zero, false, ErrClosed
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM entries WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("store: get %q: %w", key, err)
	}
	v, err := decode[V](data)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (s *SQLite[V]) Set(ctx context.Context, key string, value V) error {
	if s.db == nil {
		return ErrClosed
	}
	data, err := encode(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, data)
	if err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

func (s *SQLite[V]) Delete(ctx context.Context, key string) error {
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	return nil
}

func (s *SQLite[V]) Items(ctx context.Context) ([]Item[V], error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM entries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: items: %w", err)
	}
	defer rows.Close()

	var items []Item[V]
	for rows.Next() {
		var (
			key  string
			data []byte
		)
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("store: items: %w", err)
		}
		v, err := decode[V](data)
		if err != nil {
			return nil, err
		}
		items = append(items, Item[V]{Key: key, Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: items: %w", err)
	}
	return items, nil
}

func (s *SQLite[V]) Clear(ctx context.Context) error {
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}
