package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/credlink/tokenvault/domain"
)

// Config holds all configuration for the token vault.
// Tags use mapstructure for Viper unmarshalling and env binding.
type Config struct {
	HTTPPort        string `mapstructure:"HTTP_PORT"`
	MongoURI        string `mapstructure:"MONGO_URI"`
	MongoDBName     string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"` // empty disables the redis record cache
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// RedirectBaseURL is the externally reachable base used to build
	// OAuth redirect URLs, e.g. https://vault.example.com
	RedirectBaseURL string `mapstructure:"REDIRECT_BASE_URL"`

	RefreshIntervalMin int  `mapstructure:"REFRESH_INTERVAL_MIN"`
	RefreshSkipFailed  bool `mapstructure:"REFRESH_SKIP_FAILED"`

	// Providers maps a provider instance id to its OAuth client
	// configuration. Populated from the `providers:` section of the
	// config file; records whose provider id is absent from this map
	// (or disabled) are treated as orphaned.
	Providers map[string]domain.ProviderClientConfig `mapstructure:"providers"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults. An explicit path wins over the search paths; tests pass one.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/tokenvault/")
		v.AddConfigPath("$HOME/.tokenvault")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/tokenvault_dev")
	v.SetDefault("MONGO_DB_NAME", "tokenvault_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "tokenvault")
	v.SetDefault("REDIRECT_BASE_URL", "http://localhost:8080")
	v.SetDefault("REFRESH_INTERVAL_MIN", 30)
	v.SetDefault("REFRESH_SKIP_FAILED", false)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable; defaults and env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	for id, pc := range cfg.Providers {
		if pc.ID == "" {
			pc.ID = id
			cfg.Providers[id] = pc
		}
	}

	return &cfg, nil
}

// ClientConfig returns the OAuth client configuration for a provider
// instance. The instance must exist and carry the expected adapter type.
func (c *Config) ClientConfig(providerType, providerID string) (*domain.ProviderClientConfig, error) {
	pc, ok := c.Providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", providerID)
	}
	if string(pc.Type) != providerType {
		return nil, fmt.Errorf("provider %q is type %q, not %q", providerID, pc.Type, providerType)
	}
	return &pc, nil
}

// IsProviderActive reports whether the provider instance is configured
// and enabled. Records pointing at inactive providers are orphans.
func (c *Config) IsProviderActive(providerType, providerID string) bool {
	pc, ok := c.Providers[providerID]
	return ok && pc.Enabled && string(pc.Type) == providerType
}

// ProviderType resolves the adapter type configured for a provider
// instance id.
func (c *Config) ProviderType(providerID string) (string, bool) {
	pc, ok := c.Providers[providerID]
	if !ok {
		return "", false
	}
	return string(pc.Type), true
}
