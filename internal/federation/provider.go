package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/credlink/tokenvault/domain"
)

// defaultHTTPTimeout bounds every round-trip to a provider. The lifecycle
// engine has no timeout semantics of its own; the transport owns them.
const defaultHTTPTimeout = 15 * time.Second

// Profile is the standardized view of a user returned by a provider.
// Identifier is the raw profile identifier, often URL- or path-like
// (e.g. "https://github.com/alice"); the lifecycle engine derives the
// local user key from its final path segment.
type Profile struct {
	Identifier string
	Email      string
	Username   string
	Name       string
	RawData    map[string]any
}

// RefreshParams carries what a provider's token endpoint needs to mint a
// new access/refresh pair for a stored record.
type RefreshParams struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	RefreshToken string
}

// IdentityProvider is implemented by each external provider adapter.
type IdentityProvider interface {
	// Name returns the configured provider instance id (e.g. "github").
	Name() string

	// Type returns the adapter family.
	Type() domain.ProviderType

	// AuthCodeURL builds the URL the user is redirected to for the
	// provider handshake.
	AuthCodeURL(state, redirectURL string, opts ...oauth2.AuthCodeOption) (string, error)

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, redirectURL, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

	// FetchProfile retrieves the standardized user profile using an
	// access token.
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)

	// RefreshToken exchanges a stored refresh token for a new pair and
	// returns the raw JSON payload from the token endpoint. HTTP-level
	// failures come back as *TransportError.
	RefreshToken(ctx context.Context, params RefreshParams) (json.RawMessage, error)
}

// BaseProvider implements the endpoint-driven parts of IdentityProvider
// from a ProviderClientConfig. Concrete adapters embed it and override
// FetchProfile (and endpoints where the provider has well-known ones).
type BaseProvider struct {
	Config *domain.ProviderClientConfig

	httpClient *http.Client
}

func NewBaseProvider(cfg *domain.ProviderClientConfig) *BaseProvider {
	return &BaseProvider{
		Config:     cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (b *BaseProvider) Name() string { return b.Config.ID }

func (b *BaseProvider) Type() domain.ProviderType { return b.Config.Type }

// OAuth2Config builds the oauth2.Config for the handshake. Generic OIDC
// instances must carry explicit auth and token endpoint URLs.
func (b *BaseProvider) OAuth2Config(redirectURL string) (*oauth2.Config, error) {
	if b.Config.ClientID == "" || b.Config.ClientSecret == "" {
		return nil, ErrProviderMisconfigured
	}
	if b.Config.AuthURL == "" || b.Config.TokenURL == "" {
		return nil, ErrProviderMisconfigured
	}
	return &oauth2.Config{
		ClientID:     b.Config.ClientID,
		ClientSecret: b.Config.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       b.Config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  b.Config.AuthURL,
			TokenURL: b.Config.TokenURL,
		},
	}, nil
}

func (b *BaseProvider) AuthCodeURL(state, redirectURL string, opts ...oauth2.AuthCodeOption) (string, error) {
	conf, err := b.OAuth2Config(redirectURL)
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL(state, opts...), nil
}

func (b *BaseProvider) Exchange(ctx context.Context, redirectURL, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	conf, err := b.OAuth2Config(redirectURL)
	if err != nil {
		return nil, err
	}
	token, err := conf.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// HTTPClient returns a client authenticated with the given token for
// calls against the provider's API.
func (b *BaseProvider) HTTPClient(ctx context.Context, token *oauth2.Token) *http.Client {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	client.Timeout = defaultHTTPTimeout
	return client
}

// FetchProfile must be overridden per adapter; userinfo endpoints and
// response shapes vary too much for a generic implementation. Generic
// OIDC instances get the standard userinfo claims via UserInfoURL.
func (b *BaseProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	if b.Config.UserInfoURL == "" {
		return nil, ErrProviderMisconfigured
	}
	body, err := b.getJSON(ctx, token, b.Config.UserInfoURL)
	if err != nil {
		return nil, err
	}

	var claims struct {
		Sub               string `json:"sub"`
		Profile           string `json:"profile"`
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, fmt.Errorf("%w: decoding userinfo: %v", ErrFetchProfileFailed, err)
	}

	identifier := claims.Profile
	if identifier == "" {
		identifier = claims.Sub
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	return &Profile{
		Identifier: identifier,
		Email:      claims.Email,
		Username:   claims.PreferredUsername,
		Name:       claims.Name,
		RawData:    raw,
	}, nil
}

// getJSON performs an authenticated GET and returns the body on 200.
func (b *BaseProvider) getJSON(ctx context.Context, token *oauth2.Token, endpoint string) ([]byte, error) {
	resp, err := b.HTTPClient(ctx, token).Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchProfileFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrFetchProfileFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrFetchProfileFailed, resp.StatusCode, string(body))
	}
	return body, nil
}

// RefreshToken POSTs a refresh_token grant to the token endpoint. The raw
// payload is returned untouched so the caller can normalize expires_at
// versus expires_in itself.
func (b *BaseProvider) RefreshToken(ctx context.Context, params RefreshParams) (json.RawMessage, error) {
	if b.Config.TokenURL == "" {
		return nil, ErrProviderMisconfigured
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", params.RefreshToken)
	form.Set("client_id", params.ClientID)
	form.Set("client_secret", params.ClientSecret)
	if len(params.Scopes) > 0 {
		form.Set("scope", strings.Join(params.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return json.RawMessage(body), nil
}
