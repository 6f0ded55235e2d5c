package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credlink/tokenvault/domain"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfigFile(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "tokenvault_dev", cfg.MongoDBName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30, cfg.RefreshIntervalMin)
	assert.False(t, cfg.RefreshSkipFailed)
	assert.Empty(t, cfg.Providers)
}

func TestLoadConfig_Providers(t *testing.T) {
	cfg, err := LoadConfig(writeConfigFile(t, `
HTTP_PORT: "9090"
REFRESH_SKIP_FAILED: true
providers:
  github:
    type: github
    client_id: cid
    client_secret: csecret
    scopes: [read:user]
    enabled: true
  corp-oidc:
    type: oidc
    client_id: cid2
    client_secret: csecret2
    auth_url: https://idp.corp/auth
    token_url: https://idp.corp/token
    user_info_url: https://idp.corp/userinfo
    enabled: false
`))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.True(t, cfg.RefreshSkipFailed)

	pc, err := cfg.ClientConfig("github", "github")
	require.NoError(t, err)
	assert.Equal(t, "github", pc.ID)
	assert.Equal(t, domain.ProviderTypeGitHub, pc.Type)
	assert.Equal(t, "cid", pc.ClientID)
	assert.Equal(t, []string{"read:user"}, pc.Scopes)

	assert.True(t, cfg.IsProviderActive("github", "github"))
	assert.False(t, cfg.IsProviderActive("oidc", "corp-oidc"), "disabled provider is inactive")
	assert.False(t, cfg.IsProviderActive("github", "gitlab"), "unknown provider is inactive")
	assert.False(t, cfg.IsProviderActive("google", "github"), "type mismatch is inactive")
}

func TestClientConfig_Errors(t *testing.T) {
	cfg := &Config{Providers: map[string]domain.ProviderClientConfig{
		"github": {ID: "github", Type: domain.ProviderTypeGitHub, Enabled: true},
	}}

	_, err := cfg.ClientConfig("github", "gitlab")
	assert.Error(t, err)

	_, err = cfg.ClientConfig("google", "github")
	assert.Error(t, err)
}

func TestProviderType(t *testing.T) {
	cfg := &Config{Providers: map[string]domain.ProviderClientConfig{
		"corp-oidc": {ID: "corp-oidc", Type: domain.ProviderTypeOIDC},
	}}

	pt, ok := cfg.ProviderType("corp-oidc")
	assert.True(t, ok)
	assert.Equal(t, "oidc", pt)

	_, ok = cfg.ProviderType("missing")
	assert.False(t, ok)
}
