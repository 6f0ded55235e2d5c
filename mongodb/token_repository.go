package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/credlink/tokenvault/domain"
)

// TokenRepositoryMongo implements domain.TokenRepository.
type TokenRepositoryMongo struct {
	collection *mongo.Collection
}

// NewTokenRepositoryMongo creates a new TokenRepositoryMongo and ensures
// its indexes.
func NewTokenRepositoryMongo(ctx context.Context, db *mongo.Database) (*TokenRepositoryMongo, error) {
	repo := &TokenRepositoryMongo{
		collection: db.Collection(TokensCollection),
	}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create federated_tokens indexes")
	}
	return repo, nil
}

func (r *TokenRepositoryMongo) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			// One token record per (user, provider) pair. Backstops the
			// engine's lookup-before-insert.
			Keys:    bson.D{{Key: "user_key", Value: 1}, {Key: "provider_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_key", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes for %s collection: %w", TokensCollection, err)
	}
	log.Info().Msgf("Indexes for %s collection ensured.", TokensCollection)
	return nil
}

// Find returns the single record for (userKey, providerID). A second
// matching record means the unique index was bypassed and the pair is
// ambiguous.
func (r *TokenRepositoryMongo) Find(ctx context.Context, userKey, providerID string) (*domain.TokenRecord, error) {
	filter := bson.M{"user_key": userKey, "provider_id": providerID}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetLimit(2))
	if err != nil {
		log.Error().Err(err).Str("userKey", userKey).Str("providerID", providerID).Msg("Error finding token record")
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*domain.TokenRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, domain.ErrTokenNotFound
	case 1:
		return records[0], nil
	default:
		return nil, domain.ErrAmbiguousTokens
	}
}

// FindAll returns every token record in insertion order.
func (r *TokenRepositoryMongo) FindAll(ctx context.Context) ([]*domain.TokenRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		log.Error().Err(err).Msg("Error listing token records")
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*domain.TokenRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListByUserKey returns all token records linked to a user key.
func (r *TokenRepositoryMongo) ListByUserKey(ctx context.Context, userKey string) ([]*domain.TokenRecord, error) {
	filter := bson.M{"user_key": userKey}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		log.Error().Err(err).Str("userKey", userKey).Msg("Error listing token records by user key")
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*domain.TokenRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *TokenRepositoryMongo) Insert(ctx context.Context, record *domain.TokenRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = record.CreatedAt

	_, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("token record for user %q and provider %q already exists", record.UserKey, record.ProviderID)
		}
		log.Error().Err(err).Str("userKey", record.UserKey).Str("providerID", record.ProviderID).Msg("Error inserting token record")
		return err
	}
	return nil
}

func (r *TokenRepositoryMongo) Update(ctx context.Context, record *domain.TokenRecord) error {
	record.UpdatedAt = time.Now().UTC()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record)
	if err != nil {
		log.Error().Err(err).Str("id", record.ID).Msg("Error updating token record")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepositoryMongo) Delete(ctx context.Context, record *domain.TokenRecord) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": record.ID})
	if err != nil {
		log.Error().Err(err).Str("id", record.ID).Msg("Error deleting token record")
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

// Ensure interface compliance
var _ domain.TokenRepository = (*TokenRepositoryMongo)(nil)
