package federation

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/credlink/tokenvault/domain"
)

// CodeSession is a provider handshake driven by an authorization code
// received on the callback URL. It performs the exchange once and serves
// the profile and token payload from the result.
type CodeSession struct {
	provider    IdentityProvider
	redirectURL string
	code        string

	token *oauth2.Token
}

func NewCodeSession(provider IdentityProvider, redirectURL, code string) *CodeSession {
	return &CodeSession{provider: provider, redirectURL: redirectURL, code: code}
}

// Authenticate exchanges the authorization code for a token.
func (s *CodeSession) Authenticate(ctx context.Context) error {
	token, err := s.provider.Exchange(ctx, s.redirectURL, s.code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExchangeCodeFailed, err)
	}
	s.token = token
	return nil
}

// UserProfile fetches the provider profile for the authenticated user.
func (s *CodeSession) UserProfile(ctx context.Context) (*Profile, error) {
	if s.token == nil {
		return nil, ErrExchangeCodeFailed
	}
	return s.provider.FetchProfile(ctx, s.token)
}

// AccessToken returns the token payload obtained by the handshake.
func (s *CodeSession) AccessToken(_ context.Context) (*domain.TokenPayload, error) {
	if s.token == nil {
		return nil, ErrExchangeCodeFailed
	}
	payload := &domain.TokenPayload{
		AccessToken:  s.token.AccessToken,
		RefreshToken: s.token.RefreshToken,
	}
	if !s.token.Expiry.IsZero() {
		payload.ExpiresAt = s.token.Expiry.Unix()
	}
	return payload, nil
}
