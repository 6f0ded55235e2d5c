package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/credlink/tokenvault/domain"
)

// MemoryRecordCache implements RecordCache using ttlcache.
type MemoryRecordCache struct {
	cache *ttlcache.Cache[string, *domain.TokenRecord]
	ttl   time.Duration
}

// NewMemoryRecordCache creates a new in-memory record cache with
// automatic cleanup.
func NewMemoryRecordCache(ttl time.Duration) *MemoryRecordCache {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.TokenRecord](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.TokenRecord](),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemoryRecordCache{cache: cache, ttl: ttl}
}

// Get implements RecordCache.Get.
func (c *MemoryRecordCache) Get(_ context.Context, userKey, providerID string) (*domain.TokenRecord, bool) {
	item := c.cache.Get(RecordKey(userKey, providerID))
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set implements RecordCache.Set. Entries expire at the record's token
// expiry when that is sooner than the cache TTL, so a cached record is
// never served past the point the engine would refresh it. Records that
// are already expired are not cached at all.
func (c *MemoryRecordCache) Set(_ context.Context, record *domain.TokenRecord) error {
	until := time.Until(record.ExpiresAt)
	if until <= 0 {
		return nil
	}
	ttl := c.ttl
	if until < ttl {
		ttl = until
	}
	c.cache.Set(RecordKey(record.UserKey, record.ProviderID), record, ttl)
	return nil
}

// Invalidate implements RecordCache.Invalidate.
func (c *MemoryRecordCache) Invalidate(_ context.Context, userKey, providerID string) error {
	c.cache.Delete(RecordKey(userKey, providerID))
	return nil
}

// Close stops the cleanup goroutine.
func (c *MemoryRecordCache) Close() error {
	c.cache.Stop()
	return nil
}

var _ RecordCache = (*MemoryRecordCache)(nil)
