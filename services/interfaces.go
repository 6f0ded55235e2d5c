package services

import (
	"context"

	"github.com/credlink/tokenvault/domain"
	"github.com/credlink/tokenvault/internal/federation"
)

// ProviderConfigSource supplies per-provider OAuth client configuration
// and answers whether a provider instance is currently active. Orphan
// detection hinges on the latter: a stored record whose provider is no
// longer active gets deleted instead of refreshed.
type ProviderConfigSource interface {
	ClientConfig(providerType, providerID string) (*domain.ProviderClientConfig, error)
	IsProviderActive(providerType, providerID string) bool
}

// ProviderRegistry resolves the identity adapter for a stored record.
type ProviderRegistry interface {
	Provider(ctx context.Context, providerType, providerID string) (federation.IdentityProvider, error)
}

// IdentitySession is a provider handshake in progress, as the lifecycle
// engine sees it. The web layer drives the OAuth redirect dance and hands
// the engine a session that can produce the profile and token payload.
type IdentitySession interface {
	Authenticate(ctx context.Context) error
	UserProfile(ctx context.Context) (*federation.Profile, error)
	AccessToken(ctx context.Context) (*domain.TokenPayload, error)
}
