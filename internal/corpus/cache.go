package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix prefixes every cache key; the holiday name follows.
const KeyPrefix = "titles::"

// TitleCache persists fetched title lists outside process memory.
type TitleCache interface {
	// Get returns the cached titles. ok is false on a miss or expired entry.
	Get(ctx context.Context, key string) (titles []string, ok bool, err error)
	Set(ctx context.Context, key string, titles []string, ttl time.Duration) error
	// Clear removes every title entry.
	Clear(ctx context.Context) error
}

// SQLCache stores title lists in the corpus_cache table.
type SQLCache struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLCache creates a cache over an sqlx handle.
func NewSQLCache(db *sqlx.DB) *SQLCache {
	return &SQLCache{db: db, now: time.Now}
}

// Get implements TitleCache.
func (c *SQLCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	var row struct {
		Payload   string `db:"payload"`
		ExpiresAt int64  `db:"expires_at"`
	}
	query := c.db.Rebind(`SELECT payload, expires_at FROM corpus_cache WHERE cache_key = ?`)
	err := c.db.GetContext(ctx, &row, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read corpus cache %s: %w", key, err)
	}
	if c.now().Unix() >= row.ExpiresAt {
		return nil, false, nil
	}

	var titles []string
	if err := json.Unmarshal([]byte(row.Payload), &titles); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal corpus cache %s: %w", key, err)
	}
	return titles, true, nil
}

// Set implements TitleCache. Existing entries are replaced.
func (c *SQLCache) Set(ctx context.Context, key string, titles []string, ttl time.Duration) error {
	payload, err := json.Marshal(titles)
	if err != nil {
		return fmt.Errorf("failed to marshal titles: %w", err)
	}
	query := c.db.Rebind(`
		INSERT INTO corpus_cache (cache_key, payload, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`)
	if _, err := c.db.ExecContext(ctx, query, key, string(payload), c.now().Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to write corpus cache %s: %w", key, err)
	}
	return nil
}

// Clear implements TitleCache.
func (c *SQLCache) Clear(ctx context.Context) error {
	query := c.db.Rebind(`DELETE FROM corpus_cache WHERE cache_key LIKE ?`)
	if _, err := c.db.ExecContext(ctx, query, KeyPrefix+"%"); err != nil {
		return fmt.Errorf("failed to clear corpus cache: %w", err)
	}
	return nil
}

// RedisCache stores title lists as JSON strings with a native TTL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache over a redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements TitleCache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get titles from cache: %w", err)
	}

	var titles []string
	if err := json.Unmarshal([]byte(val), &titles); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal titles %s: %w", key, err)
	}
	return titles, true, nil
}

// Set implements TitleCache.
func (c *RedisCache) Set(ctx context.Context, key string, titles []string, ttl time.Duration) error {
	val, err := json.Marshal(titles)
	if err != nil {
		return fmt.Errorf("failed to marshal titles: %w", err)
	}
	if err := c.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set titles in cache: %w", err)
	}
	return nil
}

// Clear implements TitleCache.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// Ping checks redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
