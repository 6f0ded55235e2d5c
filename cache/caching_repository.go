package cache

import (
	"context"

	"github.com/credlink/tokenvault/domain"
	"github.com/credlink/tokenvault/log"
)

// CachingTokenRepository decorates a domain.TokenRepository with a
// read-through record cache on the Find path. Writes go straight to the
// store and invalidate the cached entry, so a stale read never survives
// a mutation. List operations bypass the cache; the bulk refresh pass
// must see the store's truth.
type CachingTokenRepository struct {
	store  domain.TokenRepository
	cache  RecordCache
	logger log.Logger
}

func NewCachingTokenRepository(store domain.TokenRepository, cache RecordCache, logger log.Logger) *CachingTokenRepository {
	return &CachingTokenRepository{store: store, cache: cache, logger: logger}
}

func (r *CachingTokenRepository) Find(ctx context.Context, userKey, providerID string) (*domain.TokenRecord, error) {
	if record, ok := r.cache.Get(ctx, userKey, providerID); ok {
		r.logger.Debug(ctx, "token record cache hit", map[string]interface{}{
			"user_key":    userKey,
			"provider_id": providerID,
		})
		return record, nil
	}

	record, err := r.store.Find(ctx, userKey, providerID)
	if err != nil {
		return nil, err
	}
	if cerr := r.cache.Set(ctx, record); cerr != nil {
		r.logger.Warn(ctx, "failed to cache token record", map[string]interface{}{
			"user_key": userKey,
			"error":    cerr.Error(),
		})
	}
	return record, nil
}

func (r *CachingTokenRepository) FindAll(ctx context.Context) ([]*domain.TokenRecord, error) {
	return r.store.FindAll(ctx)
}

func (r *CachingTokenRepository) ListByUserKey(ctx context.Context, userKey string) ([]*domain.TokenRecord, error) {
	return r.store.ListByUserKey(ctx, userKey)
}

func (r *CachingTokenRepository) Insert(ctx context.Context, record *domain.TokenRecord) error {
	if err := r.store.Insert(ctx, record); err != nil {
		return err
	}
	return r.invalidate(ctx, record)
}

func (r *CachingTokenRepository) Update(ctx context.Context, record *domain.TokenRecord) error {
	if err := r.store.Update(ctx, record); err != nil {
		return err
	}
	return r.invalidate(ctx, record)
}

func (r *CachingTokenRepository) Delete(ctx context.Context, record *domain.TokenRecord) error {
	if err := r.store.Delete(ctx, record); err != nil {
		return err
	}
	return r.invalidate(ctx, record)
}

func (r *CachingTokenRepository) invalidate(ctx context.Context, record *domain.TokenRecord) error {
	if err := r.cache.Invalidate(ctx, record.UserKey, record.ProviderID); err != nil {
		r.logger.Warn(ctx, "failed to invalidate cached token record", map[string]interface{}{
			"user_key": record.UserKey,
			"error":    err.Error(),
		})
	}
	return nil
}

var _ domain.TokenRepository = (*CachingTokenRepository)(nil)
