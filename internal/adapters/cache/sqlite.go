// Package cache provides the durable local key-value store backed by
// SQLite. It holds cached quote pages, the quote of the day, favorites,
// and the persisted auth session so the app works offline.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quotevault/quotevault/internal/domain"
	"github.com/quotevault/quotevault/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// SQLiteCache implements ports.LocalCache on a single SQLite database file.
type SQLiteCache struct {
	db *sql.DB
}

var (
	_ ports.LocalCache    = (*SQLiteCache)(nil)
	_ ports.HealthChecker = (*SQLiteCache)(nil)
)

// Open opens (creating if needed) the cache database at the given path.
// Use ":memory:" for an ephemeral cache.
func Open(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// and keeps :memory: databases on one shared handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Put stores a value under the key, replacing any existing value.
func (c *SQLiteCache) Put(ctx context.Context, key string, value []byte) error {
	const query = `
		INSERT INTO cache (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`

	if _, err := c.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("writing cache key %q: %w", key, err)
	}

	return nil
}

// Get retrieves the value for the key. Returns domain.ErrNotFound if the
// key does not exist.
func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM cache WHERE key = ?`

	var value []byte
	err := c.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("cache", key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache key %q: %w", key, err)
	}

	return value, nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM cache WHERE key = ?`

	if _, err := c.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("deleting cache key %q: %w", key, err)
	}

	return nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Name implements ports.HealthChecker.
func (c *SQLiteCache) Name() string {
	return "cache"
}

// Check implements ports.HealthChecker.
func (c *SQLiteCache) Check(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
