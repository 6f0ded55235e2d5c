package federation_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/credlink/tokenvault/domain"
	"github.com/credlink/tokenvault/internal/federation"
)

func oidcConfig(tokenURL string) *domain.ProviderClientConfig {
	return &domain.ProviderClientConfig{
		ID:           "corp-oidc",
		Type:         domain.ProviderTypeOIDC,
		ClientID:     "cid",
		ClientSecret: "csecret",
		Scopes:       []string{"openid", "offline_access"},
		AuthURL:      "https://idp.corp/auth",
		TokenURL:     tokenURL,
		Enabled:      true,
	}
}

func TestBaseProvider_RefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "csecret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "openid offline_access", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":3600}`))
	}))
	defer server.Close()

	provider := federation.NewBaseProvider(oidcConfig(server.URL))
	raw, err := provider.RefreshToken(context.Background(), federation.RefreshParams{
		ClientID:     "cid",
		ClientSecret: "csecret",
		Scopes:       []string{"openid", "offline_access"},
		RefreshToken: "old-refresh",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"new-access","refresh_token":"new-refresh","expires_in":3600}`, string(raw))
}

func TestBaseProvider_RefreshToken_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	}))
	defer server.Close()

	provider := federation.NewBaseProvider(oidcConfig(server.URL))
	_, err := provider.RefreshToken(context.Background(), federation.RefreshParams{RefreshToken: "r"})
	require.Error(t, err)
	assert.True(t, federation.IsTransportError(err))

	var te *federation.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
	assert.Contains(t, te.Body, "upstream down")
}

func TestBaseProvider_RefreshToken_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // Closed before use

	provider := federation.NewBaseProvider(oidcConfig(server.URL))
	_, err := provider.RefreshToken(context.Background(), federation.RefreshParams{RefreshToken: "r"})
	require.Error(t, err)

	var te *federation.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.Error(t, te.Unwrap())
}

func TestBaseProvider_RefreshToken_NoTokenURL(t *testing.T) {
	cfg := oidcConfig("")
	provider := federation.NewBaseProvider(cfg)

	_, err := provider.RefreshToken(context.Background(), federation.RefreshParams{RefreshToken: "r"})
	assert.ErrorIs(t, err, federation.ErrProviderMisconfigured)
	assert.False(t, federation.IsTransportError(err), "misconfiguration is not a transport failure")
}

func TestBaseProvider_OAuth2Config_Misconfigured(t *testing.T) {
	cfg := oidcConfig("https://idp.corp/token")
	cfg.ClientSecret = ""
	provider := federation.NewBaseProvider(cfg)

	_, err := provider.AuthCodeURL("state", "http://localhost/callback")
	assert.ErrorIs(t, err, federation.ErrProviderMisconfigured)
}

func TestBaseProvider_FetchProfile_OIDCUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer some-access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"sub": "alice-sub",
			"profile": "https://idp.corp/users/alice",
			"email": "alice@corp.example",
			"name": "Alice",
			"preferred_username": "alice"
		}`))
	}))
	defer server.Close()

	cfg := oidcConfig("https://idp.corp/token")
	cfg.UserInfoURL = server.URL
	provider := federation.NewBaseProvider(cfg)

	profile, err := provider.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "some-access"})
	require.NoError(t, err)
	assert.Equal(t, "https://idp.corp/users/alice", profile.Identifier)
	assert.Equal(t, "alice@corp.example", profile.Email)
	assert.Equal(t, "alice", profile.Username)
	require.NotNil(t, profile.RawData)
	assert.Equal(t, "alice-sub", profile.RawData["sub"])
}

func TestBaseProvider_FetchProfile_FallsBackToSub(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub": "alice-sub"}`))
	}))
	defer server.Close()

	cfg := oidcConfig("https://idp.corp/token")
	cfg.UserInfoURL = server.URL
	provider := federation.NewBaseProvider(cfg)

	profile, err := provider.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, "alice-sub", profile.Identifier)
}

func TestCodeSession_AccessTokenPayload(t *testing.T) {
	expiry := time.Now().Add(30 * time.Minute)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"sess-access","refresh_token":"sess-refresh","token_type":"bearer","expires_in":1800}`))
	}))
	defer server.Close()

	cfg := oidcConfig(server.URL)
	provider := federation.NewBaseProvider(cfg)
	session := federation.NewCodeSession(provider, "http://localhost/callback", "auth-code")

	require.NoError(t, session.Authenticate(context.Background()))

	payload, err := session.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-access", payload.AccessToken)
	assert.Equal(t, "sess-refresh", payload.RefreshToken)
	assert.InDelta(t, expiry.Unix(), payload.ExpiresAt, 5)
}

func TestCodeSession_ExchangeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	provider := federation.NewBaseProvider(oidcConfig(server.URL))
	session := federation.NewCodeSession(provider, "http://localhost/callback", "bad-code")

	err := session.Authenticate(context.Background())
	assert.ErrorIs(t, err, federation.ErrExchangeCodeFailed)

	// The session refuses to serve data before a successful handshake.
	_, err = session.UserProfile(context.Background())
	assert.ErrorIs(t, err, federation.ErrExchangeCodeFailed)
	_, err = session.AccessToken(context.Background())
	assert.ErrorIs(t, err, federation.ErrExchangeCodeFailed)
}
