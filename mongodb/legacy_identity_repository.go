package mongodb

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/credlink/tokenvault/domain"
)

// LegacyIdentityRepositoryMongo implements domain.LegacyIdentityRepository.
// The collection is populated by the key scheme migration and is
// read-only at runtime.
type LegacyIdentityRepositoryMongo struct {
	collection *mongo.Collection
}

func NewLegacyIdentityRepositoryMongo(db *mongo.Database) *LegacyIdentityRepositoryMongo {
	return &LegacyIdentityRepositoryMongo{
		collection: db.Collection(LegacyIdentitiesCollection),
	}
}

// ListExternalIDs returns the external identifiers recorded for a user
// key, in insertion order. Fallback lookups scan these in order and take
// the first match, so the ordering is part of the contract.
func (r *LegacyIdentityRepositoryMongo) ListExternalIDs(ctx context.Context, userKey string) ([]string, error) {
	filter := bson.M{"user_key": userKey}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		log.Error().Err(err).Str("userKey", userKey).Msg("Error listing legacy identities")
		return nil, err
	}
	defer cursor.Close(ctx)

	var identities []*domain.LegacyIdentity
	if err = cursor.All(ctx, &identities); err != nil {
		return nil, err
	}

	externalIDs := make([]string, 0, len(identities))
	for _, identity := range identities {
		externalIDs = append(externalIDs, identity.ExternalID)
	}
	return externalIDs, nil
}

// Ensure interface compliance
var _ domain.LegacyIdentityRepository = (*LegacyIdentityRepositoryMongo)(nil)
