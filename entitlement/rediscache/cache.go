// Package rediscache stores access snapshots in Redis so that every
// Cashier instance behind a load balancer shares one cache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/cashier/entitlement"
)

// DefaultPrefix namespaces snapshot keys.
const DefaultPrefix = "cashier:access:"

// Cache implements entitlement.Cache on top of a Redis client.
type Cache struct {
	db     redis.UniversalClient
	prefix string
}

var _ entitlement.Cache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// New wraps an existing client.
func New(db redis.UniversalClient, opts ...Option) *Cache {
	c := &Cache{db: db, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect parses a redis:// URL, pings the server and returns a client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("rediscache: parse url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("rediscache: ping: %w", err)
	}
	return client, nil
}

func (c *Cache) key(userID string) string { return c.prefix + userID }

func (c *Cache) Get(ctx context.Context, userID string) (*entitlement.Snapshot, error) {
	raw, err := c.db.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, entitlement.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("rediscache: get: %w", err)
	}

	var snap entitlement.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt entry behaves like a miss and is recomputed.
		_ = c.db.Del(ctx, c.key(userID)).Err()
		return nil, entitlement.ErrCacheMiss
	}
	return &snap, nil
}

func (c *Cache) Set(ctx context.Context, snap *entitlement.Snapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("rediscache: marshal: %w", err)
	}
	if err := c.db.Set(ctx, c.key(snap.UserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("rediscache: set: %w", err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	if err := c.db.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("rediscache: del: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.db.Ping(ctx).Err()
}
