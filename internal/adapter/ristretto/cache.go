// Package ristretto provides the in-process L1 cache used for agent
// registry snapshots.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// averageEntryBytes sizes the admission counters; snapshot payloads are
// roughly this large.
const averageEntryBytes = 1024

// Cache is a size-bounded byte cache. Cost equals the value length, so the
// configured maximum is a byte budget, not an entry count.
type Cache struct {
	inner *ristretto.Cache[string, []byte]
}

// New creates a cache holding at most maxBytes of values.
func New(maxBytes int64) (*Cache, error) {
	counters := maxBytes / averageEntryBytes * 10
	if counters < 1024 {
		counters = 1024
	}
	inner, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get returns the cached value for key, reporting a miss through ok.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.inner.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value under key for the given TTL, costed at its length.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.inner.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.inner.Del(key)
	return nil
}

// Wait blocks until buffered writes have been admitted. Ristretto applies
// sets asynchronously, so tests call this between Set and Get.
func (c *Cache) Wait() {
	c.inner.Wait()
}

// Close releases the cache's internal buffers and goroutines.
func (c *Cache) Close() {
	c.inner.Close()
}
