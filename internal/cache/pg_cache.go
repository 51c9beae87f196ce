package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrCacheMiss is returned when a key is not found in cache
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheExpired is returned when a cached value has expired
	ErrCacheExpired = errors.New("cache expired")
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PGCache implements a PostgreSQL-based cache with TTL support
type PGCache struct {
	db  DB
	now func() time.Time
}

// NewPGCache creates a new PostgreSQL cache over a pool or any compatible DB
func NewPGCache(db DB) *PGCache {
	return &PGCache{db: db, now: time.Now}
}

// CompositeKey builds the key of a rendered composite. The provider is part
// of the key because each provider may find different faces.
func CompositeKey(provider, imageSHA256 string) string {
	return fmt.Sprintf("composite:%s:%s", provider, imageSHA256)
}

// Get retrieves a value from cache by key
func (c *PGCache) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value, expires_at
		FROM cache_entries
		WHERE key = $1
	`

	var value []byte
	var expiresAt time.Time

	err := c.db.QueryRow(ctx, query, key).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	if c.now().After(expiresAt) {
		// the janitor removes it eventually; deleting here keeps reads cheap afterwards
		_ = c.Delete(ctx, key)
		return nil, ErrCacheExpired
	}

	return value, nil
}

// Set stores a value in cache with TTL
func (c *PGCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`

	expiresAt := c.now().Add(ttl)
	if _, err := c.db.Exec(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

// Delete removes a key from cache
func (c *PGCache) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM cache_entries WHERE key = $1`
	_, err := c.db.Exec(ctx, query, key)
	return err
}

// CleanupExpired removes all expired entries
func (c *PGCache) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM cache_entries WHERE expires_at < NOW()`
	result, err := c.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// RunJanitor deletes expired entries every interval until ctx is done
func (c *PGCache) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := c.CleanupExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.WarnContext(ctx, "cache cleanup failed", "error", err)
				}
				continue
			}
			if removed > 0 {
				logger.DebugContext(ctx, "expired cache entries removed", slog.Int64("count", removed))
			}
		}
	}
}
