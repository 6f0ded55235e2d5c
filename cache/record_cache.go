package cache

import (
	"context"
	"fmt"

	"github.com/credlink/tokenvault/domain"
)

// RecordCache caches token records in front of the persistent store,
// keyed by (userKey, providerID). Implementations must tolerate misses
// silently; the caching repository treats every cache fault as a miss.
type RecordCache interface {
	Get(ctx context.Context, userKey, providerID string) (*domain.TokenRecord, bool)
	Set(ctx context.Context, record *domain.TokenRecord) error
	Invalidate(ctx context.Context, userKey, providerID string) error
}

// RecordKey builds the cache key for a (userKey, providerID) pair.
func RecordKey(userKey, providerID string) string {
	return fmt.Sprintf("%s/%s", userKey, providerID)
}
