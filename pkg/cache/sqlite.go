package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/rubiojr/glimpse/pkg/db"
)

// SQLiteStore keeps entries in a sqlite database file. Leases exclude every
// process opening the same file, which makes it a fit for a single host
// running several workers without a redis server.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the cache schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.InitializeDatabase(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &SQLiteStore{db: conn, now: time.Now}
	if _, err := s.Purge(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = ? AND expires_at > ?`,
		key, s.now().UnixNano(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, s.now().Add(ttl).UnixNano())
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := s.now()
	// The upsert only takes over an expired lease.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_locks (key, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE cache_locks.expires_at <= ?
	`, key, owner, now.Add(ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("taking cache lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("taking cache lease: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE cache_locks SET expires_at = ? WHERE key = ? AND owner = ? AND expires_at > ?`,
		now.Add(ttl).UnixNano(), key, owner, now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("renewing cache lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("renewing cache lease: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Unlock(ctx context.Context, key, owner string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_locks WHERE key = ? AND owner = ?`, key, owner)
	if err != nil {
		return fmt.Errorf("releasing cache lease: %w", err)
	}
	return nil
}

// Purge deletes expired entries and leases and returns how many entries
// were removed.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	now := s.now().UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("purging cache entries: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_locks WHERE expires_at <= ?`, now); err != nil {
		return 0, fmt.Errorf("purging cache leases: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
