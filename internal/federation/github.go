package federation

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	githubOAuth2 "golang.org/x/oauth2/github"

	"github.com/credlink/tokenvault/domain"
)

// GithubUserInfoEndpoint is a variable so tests can point it at a local
// server.
var GithubUserInfoEndpoint = "https://api.github.com/user"

// GitHubProvider adapts GitHub's OAuth2 API. GitHub is not strictly OIDC
// but its code flow is compatible.
type GitHubProvider struct {
	*BaseProvider
}

// NewGitHubProvider creates a GitHubProvider, filling in GitHub's
// well-known endpoints and the scopes the profile fetch needs.
func NewGitHubProvider(cfg *domain.ProviderClientConfig) (*GitHubProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrProviderMisconfigured
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = githubOAuth2.Endpoint.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = githubOAuth2.Endpoint.TokenURL
	}
	cfg.Scopes = ensureScope(cfg.Scopes, "read:user")

	return &GitHubProvider{BaseProvider: NewBaseProvider(cfg)}, nil
}

// FetchProfile hits the /user endpoint. The html_url field (the user's
// profile page, "https://github.com/<login>") serves as the raw profile
// identifier the local user key is derived from.
func (g *GitHubProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	body, err := g.getJSON(ctx, token, GithubUserInfoEndpoint)
	if err != nil {
		return nil, err
	}

	var user struct {
		ID      json.Number `json:"id"`
		Login   string      `json:"login"`
		Name    string      `json:"name"`
		Email   string      `json:"email"`
		HTMLURL string      `json:"html_url"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: decoding github user: %v", ErrFetchProfileFailed, err)
	}

	identifier := user.HTMLURL
	if identifier == "" {
		identifier = user.Login
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	return &Profile{
		Identifier: identifier,
		Email:      user.Email,
		Username:   user.Login,
		Name:       user.Name,
		RawData:    raw,
	}, nil
}

func ensureScope(scopes []string, scope string) []string {
	for _, s := range scopes {
		if s == scope {
			return scopes
		}
	}
	return append(scopes, scope)
}

var _ IdentityProvider = (*GitHubProvider)(nil)
