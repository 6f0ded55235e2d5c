package federation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credlink/tokenvault/domain"
	"github.com/credlink/tokenvault/internal/federation"
)

// mapConfigSource serves client configs from a map and counts lookups.
type mapConfigSource struct {
	configs map[string]*domain.ProviderClientConfig
	lookups int
}

func (s *mapConfigSource) ClientConfig(providerType, providerID string) (*domain.ProviderClientConfig, error) {
	s.lookups++
	cfg, ok := s.configs[providerID]
	if !ok || string(cfg.Type) != providerType {
		return nil, federation.ErrProviderNotFound
	}
	return cfg, nil
}

func registrySource() *mapConfigSource {
	return &mapConfigSource{configs: map[string]*domain.ProviderClientConfig{
		"github": {
			ID: "github", Type: domain.ProviderTypeGitHub,
			ClientID: "cid", ClientSecret: "csecret", Enabled: true,
		},
		"google": {
			ID: "google", Type: domain.ProviderTypeGoogle,
			ClientID: "cid", ClientSecret: "csecret", Enabled: true,
		},
		"corp-oidc": {
			ID: "corp-oidc", Type: domain.ProviderTypeOIDC,
			ClientID: "cid", ClientSecret: "csecret",
			AuthURL: "https://idp.corp/auth", TokenURL: "https://idp.corp/token",
			Enabled: true,
		},
		"legacy-idp": {
			ID: "legacy-idp", Type: "saml",
			ClientID: "cid", ClientSecret: "csecret", Enabled: true,
		},
		"paused": {
			ID: "paused", Type: domain.ProviderTypeGitHub,
			ClientID: "cid", ClientSecret: "csecret", Enabled: false,
		},
		"broken-oidc": {
			ID: "broken-oidc", Type: domain.ProviderTypeOIDC,
			ClientID: "cid", ClientSecret: "csecret", Enabled: true,
		},
	}}
}

func TestRegistry_BuildsAdapterPerType(t *testing.T) {
	registry := federation.NewRegistry(registrySource())
	defer registry.Stop()

	github, err := registry.Provider(context.Background(), "github", "github")
	require.NoError(t, err)
	assert.IsType(t, &federation.GitHubProvider{}, github)
	assert.Equal(t, domain.ProviderTypeGitHub, github.Type())

	google, err := registry.Provider(context.Background(), "google", "google")
	require.NoError(t, err)
	assert.IsType(t, &federation.GoogleProvider{}, google)

	oidc, err := registry.Provider(context.Background(), "oidc", "corp-oidc")
	require.NoError(t, err)
	assert.IsType(t, &federation.BaseProvider{}, oidc)
	assert.Equal(t, "corp-oidc", oidc.Name())
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := federation.NewRegistry(registrySource())
	defer registry.Stop()

	_, err := registry.Provider(context.Background(), "github", "missing")
	assert.ErrorIs(t, err, federation.ErrProviderNotFound)
}

func TestRegistry_DisabledProvider(t *testing.T) {
	registry := federation.NewRegistry(registrySource())
	defer registry.Stop()

	_, err := registry.Provider(context.Background(), "github", "paused")
	assert.ErrorIs(t, err, federation.ErrProviderNotFound)
}

func TestRegistry_UnsupportedType(t *testing.T) {
	registry := federation.NewRegistry(registrySource())
	defer registry.Stop()

	_, err := registry.Provider(context.Background(), "saml", "legacy-idp")
	assert.ErrorIs(t, err, federation.ErrProviderMisconfigured)
}

func TestRegistry_OIDCNeedsTokenEndpoint(t *testing.T) {
	registry := federation.NewRegistry(registrySource())
	defer registry.Stop()

	_, err := registry.Provider(context.Background(), "oidc", "broken-oidc")
	assert.ErrorIs(t, err, federation.ErrProviderMisconfigured)
}

func TestRegistry_CachesConstructedAdapters(t *testing.T) {
	source := registrySource()
	registry := federation.NewRegistry(source)
	defer registry.Stop()

	first, err := registry.Provider(context.Background(), "github", "github")
	require.NoError(t, err)
	second, err := registry.Provider(context.Background(), "github", "github")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, source.lookups, "config consulted once within the cache TTL")
}
