package domain

import "time"

// TokenRecord holds the credential pair a local user obtained from an
// external identity provider. At most one record exists per
// (UserKey, ProviderID) pair; the storage layer enforces this with a
// unique index and the lifecycle engine checks before inserting.
type TokenRecord struct {
	ID           string    `bson:"_id,omitempty" json:"id,omitempty"`
	UserKey      string    `bson:"user_key" json:"user_key"`
	ProviderType string    `bson:"provider_type" json:"provider_type"`
	ProviderID   string    `bson:"provider_id" json:"provider_id"`
	AccessToken  string    `bson:"access_token" json:"-"`
	RefreshToken string    `bson:"refresh_token" json:"-"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
	Failed       bool      `bson:"failed" json:"failed"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Expired reports whether the record is due for a refresh at the given
// time. A record expiring exactly now counts as expired.
func (r *TokenRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// LegacyIdentity maps a local user key to an external identifier the user
// held before the key scheme migration. ExternalID carries the provider id
// as a literal prefix, e.g. "github-alice". The table is read-only at
// runtime and consulted only when a direct token lookup misses.
type LegacyIdentity struct {
	ID         string    `bson:"_id,omitempty" json:"id,omitempty"`
	UserKey    string    `bson:"user_key" json:"user_key"`
	ExternalID string    `bson:"external_id" json:"external_id"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
