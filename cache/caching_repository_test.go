package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credlink/tokenvault/domain"
	"github.com/credlink/tokenvault/log"
)

// countingStore is a minimal in-memory TokenRepository tracking Find calls.
type countingStore struct {
	records map[string]*domain.TokenRecord
	finds   int
}

func newCountingStore() *countingStore {
	return &countingStore{records: make(map[string]*domain.TokenRecord)}
}

func (s *countingStore) Find(_ context.Context, userKey, providerID string) (*domain.TokenRecord, error) {
	s.finds++
	record, ok := s.records[RecordKey(userKey, providerID)]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return record, nil
}

func (s *countingStore) FindAll(_ context.Context) ([]*domain.TokenRecord, error) {
	var out []*domain.TokenRecord
	for _, record := range s.records {
		out = append(out, record)
	}
	return out, nil
}

func (s *countingStore) ListByUserKey(_ context.Context, userKey string) ([]*domain.TokenRecord, error) {
	var out []*domain.TokenRecord
	for _, record := range s.records {
		if record.UserKey == userKey {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *countingStore) Insert(_ context.Context, record *domain.TokenRecord) error {
	s.records[RecordKey(record.UserKey, record.ProviderID)] = record
	return nil
}

func (s *countingStore) Update(_ context.Context, record *domain.TokenRecord) error {
	s.records[RecordKey(record.UserKey, record.ProviderID)] = record
	return nil
}

func (s *countingStore) Delete(_ context.Context, record *domain.TokenRecord) error {
	delete(s.records, RecordKey(record.UserKey, record.ProviderID))
	return nil
}

func testRecord() *domain.TokenRecord {
	return &domain.TokenRecord{
		ID:           "rec-1",
		UserKey:      "github-alice",
		ProviderType: "github",
		ProviderID:   "github",
		AccessToken:  "a1",
		RefreshToken: "r1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func TestCachingRepository_ReadThrough(t *testing.T) {
	store := newCountingStore()
	mem := NewMemoryRecordCache(time.Minute)
	defer mem.Close()
	repo := NewCachingTokenRepository(store, mem, log.NewNop())

	record := testRecord()
	require.NoError(t, store.Insert(context.Background(), record))

	got, err := repo.Find(context.Background(), "github-alice", "github")
	require.NoError(t, err)
	assert.Equal(t, record, got)
	assert.Equal(t, 1, store.finds)

	// Second read is served from the cache.
	got, err = repo.Find(context.Background(), "github-alice", "github")
	require.NoError(t, err)
	assert.Equal(t, record, got)
	assert.Equal(t, 1, store.finds)
}

func TestCachingRepository_MissPassesThrough(t *testing.T) {
	store := newCountingStore()
	mem := NewMemoryRecordCache(time.Minute)
	defer mem.Close()
	repo := NewCachingTokenRepository(store, mem, log.NewNop())

	_, err := repo.Find(context.Background(), "nobody", "github")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestCachingRepository_WriteInvalidates(t *testing.T) {
	store := newCountingStore()
	mem := NewMemoryRecordCache(time.Minute)
	defer mem.Close()
	repo := NewCachingTokenRepository(store, mem, log.NewNop())

	record := testRecord()
	require.NoError(t, store.Insert(context.Background(), record))

	_, err := repo.Find(context.Background(), "github-alice", "github")
	require.NoError(t, err)

	updated := testRecord()
	updated.AccessToken = "a2"
	require.NoError(t, repo.Update(context.Background(), updated))

	got, err := repo.Find(context.Background(), "github-alice", "github")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AccessToken)
}

func TestCachingRepository_DeleteInvalidates(t *testing.T) {
	store := newCountingStore()
	mem := NewMemoryRecordCache(time.Minute)
	defer mem.Close()
	repo := NewCachingTokenRepository(store, mem, log.NewNop())

	record := testRecord()
	require.NoError(t, store.Insert(context.Background(), record))

	_, err := repo.Find(context.Background(), "github-alice", "github")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), record))

	_, err = repo.Find(context.Background(), "github-alice", "github")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestMemoryRecordCache_ExpiredRecordNotCached(t *testing.T) {
	mem := NewMemoryRecordCache(time.Hour)
	defer mem.Close()

	record := testRecord()
	record.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, mem.Set(context.Background(), record))

	_, ok := mem.Get(context.Background(), "github-alice", "github")
	assert.False(t, ok)
}
