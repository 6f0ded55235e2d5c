package federation

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/credlink/tokenvault/domain"
)

// providerCacheTTL bounds how long a constructed adapter is reused before
// configuration is consulted again.
const providerCacheTTL = 5 * time.Minute

// ConfigSource supplies OAuth client configuration for configured
// provider instances.
type ConfigSource interface {
	ClientConfig(providerType, providerID string) (*domain.ProviderClientConfig, error)
}

// Registry resolves identity provider adapters from configuration. The
// provider type is a closed set: construction switches on it rather than
// on any runtime type lookup. Constructed adapters are cached briefly so
// a bulk refresh pass does not rebuild one per record.
type Registry struct {
	source ConfigSource
	cache  *ttlcache.Cache[string, IdentityProvider]
}

func NewRegistry(source ConfigSource) *Registry {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, IdentityProvider](providerCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, IdentityProvider](),
	)
	go cache.Start()

	return &Registry{source: source, cache: cache}
}

// Stop shuts down the cache cleanup goroutine.
func (r *Registry) Stop() {
	r.cache.Stop()
}

// Provider returns the adapter for a configured provider instance.
// Unknown or disabled instances fail with ErrProviderNotFound; instances
// whose configuration cannot build an adapter fail with
// ErrProviderMisconfigured.
func (r *Registry) Provider(_ context.Context, providerType, providerID string) (IdentityProvider, error) {
	key := providerType + "/" + providerID
	if item := r.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	cfg, err := r.source.ClientConfig(providerType, providerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrProviderNotFound, providerType, providerID)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: %s/%s", ErrProviderNotFound, providerType, providerID)
	}

	provider, err := r.build(cfg)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, provider, providerCacheTTL)
	return provider, nil
}

func (r *Registry) build(cfg *domain.ProviderClientConfig) (IdentityProvider, error) {
	switch cfg.Type {
	case domain.ProviderTypeGitHub:
		return NewGitHubProvider(cfg)
	case domain.ProviderTypeGoogle:
		return NewGoogleProvider(cfg)
	case domain.ProviderTypeOIDC:
		if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" {
			return nil, fmt.Errorf("%w: oidc instance %q needs client credentials and a token endpoint", ErrProviderMisconfigured, cfg.ID)
		}
		return NewBaseProvider(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider type %q", ErrProviderMisconfigured, cfg.Type)
	}
}
