// Package session persists player identities across reconnects. A session is
// a random token mapped to a display name; rooms and hand state stay in
// memory, only the name survives a restart.
package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no session exists for a token.
var ErrNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	token      TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is a sqlite-backed session store.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if missing) the session database at the given
// path, with WAL journaling and a busy timeout so concurrent connections
// queue instead of failing.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put creates or renames a session.
func (s *Store) Put(ctx context.Context, token, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, name) VALUES (?, ?)
		ON CONFLICT(token) DO UPDATE SET name = excluded.name, last_seen = CURRENT_TIMESTAMP`,
		token, name)
	return err
}

// Name returns the display name for a session token.
func (s *Store) Name(ctx context.Context, token string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sessions WHERE token = ?`, token).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// Touch bumps a session's last_seen timestamp.
func (s *Store) Touch(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen = CURRENT_TIMESTAMP WHERE token = ?`, token)
	return err
}

// Prune removes sessions idle for longer than maxAge and returns how many
// were dropped. The cutoff is computed in SQL so it compares in the same
// clock and format CURRENT_TIMESTAMP writes.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_seen < datetime('now', ?)`,
		fmt.Sprintf("-%d seconds", int64(maxAge/time.Second)))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// NewToken returns a fresh random session token.
func NewToken() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	return hex.EncodeToString(buf[:])
}
