package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matsen/journalrec/internal/journal"
	"github.com/matsen/journalrec/internal/logger"
)

const (
	// DefaultCacheTTL matches how long the catalog itself is considered fresh.
	DefaultCacheTTL = time.Hour

	keyPrefix = "jrec:metrics:"
)

// CachedSource memoizes another Source per ISSN in Redis, so a journal
// shows the same metrics until the entry expires. The cache is best-effort:
// Redis failures are logged and the inner source answers.
type CachedSource struct {
	inner Source
	rdb   *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// CacheOption configures a CachedSource.
type CacheOption func(*CachedSource)

// WithCacheLogger sets where Redis failures are reported.
func WithCacheLogger(l *logger.Logger) CacheOption {
	return func(c *CachedSource) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCachedSource wraps inner with a Redis cache reached at redisURL
// (e.g. redis://localhost:6379/0).
func NewCachedSource(inner Source, redisURL string, ttl time.Duration, opts ...CacheOption) (*CachedSource, error) {
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &CachedSource{inner: inner, rdb: redis.NewClient(ropts), ttl: ttl, log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ping checks the Redis connection.
func (c *CachedSource) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *CachedSource) Close() error {
	return c.rdb.Close()
}

// Lookup returns cached metrics for issn, or draws and stores new ones.
// Journals without an ISSN are never cached.
func (c *CachedSource) Lookup(ctx context.Context, issn string) (Metrics, error) {
	if issn == "" || issn == journal.NotAvailable {
		return c.inner.Lookup(ctx, issn)
	}

	key := keyPrefix + issn
	raw, err := c.rdb.Get(ctx, key).Bytes()
	reachable := true
	switch {
	case err == nil:
		var m Metrics
		if jsonErr := json.Unmarshal(raw, &m); jsonErr == nil {
			return m, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.Warn("metrics cache read failed, drawing uncached", "issn", issn, "error", err)
		reachable = false
	}

	m, err := c.inner.Lookup(ctx, issn)
	if err != nil || !reachable {
		return m, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		c.log.Warn("encoding metrics for cache", "issn", issn, "error", err)
		return m, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("metrics cache write failed", "issn", issn, "error", err)
	}
	return m, nil
}
