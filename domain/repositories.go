package domain

import "context"

// TokenRepository is the persistence boundary for token records.
//
// Find returns ErrTokenNotFound when no record matches and
// ErrAmbiguousTokens when more than one does. Update and Delete return
// ErrTokenNotFound when the record has vanished underneath the caller.
// Any other failure is a raw storage fault for the caller to wrap.
type TokenRepository interface {
	Find(ctx context.Context, userKey, providerID string) (*TokenRecord, error)
	FindAll(ctx context.Context) ([]*TokenRecord, error)
	ListByUserKey(ctx context.Context, userKey string) ([]*TokenRecord, error)
	Insert(ctx context.Context, record *TokenRecord) error
	Update(ctx context.Context, record *TokenRecord) error
	Delete(ctx context.Context, record *TokenRecord) error
}

// LegacyIdentityRepository reads the historical identifier mapping kept
// from the user key scheme migration. Identifiers come back in store
// order; the first one matching a provider prefix wins.
type LegacyIdentityRepository interface {
	ListExternalIDs(ctx context.Context, userKey string) ([]string, error)
}
