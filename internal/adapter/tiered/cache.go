// Package tiered implements a two-level (L1 + L2) cache adapter.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/StudyMate/internal/port/cache"
)

// Cache combines an L1 (in-process) and an optional L2 (remote) cache.
// Get checks L1 first, then L2 (backfilling L1 on L2 hit). Set and Delete
// operate on both levels. With a nil L2 the cache is L1 only.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
}

// New creates a tiered cache with the given L1 and L2 backends.
// l1Expire caps how long L2 backfill entries live in L1.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

// Get checks L1, then L2. On L2 hit, backfills L1.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found || c.l2 == nil {
		return val, found, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		if err := c.l1.Set(ctx, key, val, c.l1Expire); err != nil {
			slog.Debug("l1 backfill skipped", "key", key, "error", err)
		}
		return val, true, nil
	}

	return nil, false, nil
}

// Set writes to both L1 and L2. When an L2 exists an L1 rejection is not
// an error, since L2 still serves the value.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l1Err := c.l1.Set(ctx, key, value, ttl)
	if c.l2 == nil {
		return l1Err
	}
	if l1Err != nil {
		slog.Debug("l1 set skipped", "key", key, "error", l1Err)
	}
	return c.l2.Set(ctx, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.l1.Delete(ctx, key); err != nil {
		return err
	}
	if c.l2 == nil {
		return nil
	}
	return c.l2.Delete(ctx, key)
}
