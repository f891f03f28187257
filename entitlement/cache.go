package entitlement

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when no fresh snapshot exists.
var ErrCacheMiss = errors.New("entitlement: cache miss")

// Cache memoizes access snapshots per user.
type Cache interface {
	Get(ctx context.Context, userID string) (*Snapshot, error)
	Set(ctx context.Context, snap *Snapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}

type memoryEntry struct {
	snap    *Snapshot
	expires time.Time
}

// MemoryCache is a process-local TTL map keyed by user id.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, userID string) (*Snapshot, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expires) {
		return nil, ErrCacheMiss
	}
	return e.snap, nil
}

func (c *MemoryCache) Set(_ context.Context, snap *Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[snap.UserID] = memoryEntry{snap: snap, expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, userID)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Snapshot, error) { return nil, ErrCacheMiss }
func (NopCache) Set(context.Context, *Snapshot, time.Duration) error { return nil }
func (NopCache) Invalidate(context.Context, string) error { return nil }
