package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/credlink/tokenvault/cache"
	"github.com/credlink/tokenvault/domain"
)

// RecordCache implements cache.RecordCache backed by Redis. Records are
// stored as JSON with a key TTL, so entries vanish on their own when a
// deployment shares the cache across restarts.
type RecordCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRecordCache creates a new RecordCache instance.
func NewRecordCache(client *redis.Client, prefix string, ttl time.Duration) *RecordCache {
	return &RecordCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RecordCache) redisKey(userKey, providerID string) string {
	return fmt.Sprintf("%s:record:%s", r.prefix, cache.RecordKey(userKey, providerID))
}

// recordEnvelope is the Redis wire shape. TokenRecord hides the token
// values from its API JSON, so the cache carries them explicitly.
type recordEnvelope struct {
	ID           string    `json:"id"`
	UserKey      string    `json:"user_key"`
	ProviderType string    `json:"provider_type"`
	ProviderID   string    `json:"provider_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Failed       bool      `json:"failed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func envelope(record *domain.TokenRecord) *recordEnvelope {
	return &recordEnvelope{
		ID:           record.ID,
		UserKey:      record.UserKey,
		ProviderType: record.ProviderType,
		ProviderID:   record.ProviderID,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    record.ExpiresAt,
		Failed:       record.Failed,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

func (e *recordEnvelope) record() *domain.TokenRecord {
	return &domain.TokenRecord{
		ID:           e.ID,
		UserKey:      e.UserKey,
		ProviderType: e.ProviderType,
		ProviderID:   e.ProviderID,
		AccessToken:  e.AccessToken,
		RefreshToken: e.RefreshToken,
		ExpiresAt:    e.ExpiresAt,
		Failed:       e.Failed,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// Get retrieves a record from Redis. Any fault is reported as a miss.
func (r *RecordCache) Get(ctx context.Context, userKey, providerID string) (*domain.TokenRecord, bool) {
	raw, err := r.client.Get(ctx, r.redisKey(userKey, providerID)).Bytes()
	if err != nil {
		return nil, false
	}

	var env recordEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}
	return env.record(), true
}

// Set stores a record in Redis, bounding the TTL by the token expiry.
// Already expired records are not cached.
func (r *RecordCache) Set(ctx context.Context, record *domain.TokenRecord) error {
	until := time.Until(record.ExpiresAt)
	if until <= 0 {
		return nil
	}

	raw, err := json.Marshal(envelope(record))
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	ttl := r.ttl
	if until < ttl {
		ttl = until
	}

	key := r.redisKey(record.UserKey, record.ProviderID)
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set record in Redis: %w", err)
	}
	return nil
}

// Invalidate removes a record from Redis.
func (r *RecordCache) Invalidate(ctx context.Context, userKey, providerID string) error {
	if err := r.client.Del(ctx, r.redisKey(userKey, providerID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete record from Redis: %w", err)
	}
	return nil
}

var _ cache.RecordCache = (*RecordCache)(nil)
