package federation

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	googleOAuth2 "golang.org/x/oauth2/google"

	"github.com/credlink/tokenvault/domain"
)

var GoogleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider adapts Google sign-in via its OAuth2/OIDC endpoints.
type GoogleProvider struct {
	*BaseProvider
}

// NewGoogleProvider creates a GoogleProvider with Google's well-known
// endpoints and the openid/profile/email scopes the userinfo call needs.
func NewGoogleProvider(cfg *domain.ProviderClientConfig) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrProviderMisconfigured
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = googleOAuth2.Endpoint.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = googleOAuth2.Endpoint.TokenURL
	}
	cfg.Scopes = ensureScope(cfg.Scopes, "openid")
	cfg.Scopes = ensureScope(cfg.Scopes, "https://www.googleapis.com/auth/userinfo.profile")
	cfg.Scopes = ensureScope(cfg.Scopes, "https://www.googleapis.com/auth/userinfo.email")

	return &GoogleProvider{BaseProvider: NewBaseProvider(cfg)}, nil
}

// FetchProfile reads the v3 userinfo claims. Google rarely sets the
// profile claim, so the stable subject id is the usual identifier.
func (g *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	body, err := g.getJSON(ctx, token, GoogleUserInfoEndpoint)
	if err != nil {
		return nil, err
	}

	var claims struct {
		Sub     string `json:"sub"`
		Profile string `json:"profile"`
		Email   string `json:"email"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, fmt.Errorf("%w: decoding google userinfo: %v", ErrFetchProfileFailed, err)
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
		Name:       claims.Name,
		RawData:    raw,
	}, nil
}

var _ IdentityProvider = (*GoogleProvider)(nil)
