package domain

import "time"

// TokenPayload is the wire shape identity providers return from their
// token endpoint. expires_at is epoch seconds; when a provider only
// reports a relative lifetime it arrives as expires_in instead.
type TokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// Expiry resolves the absolute expiry time of the payload, deriving it
// from ExpiresIn when the provider omitted expires_at.
func (p *TokenPayload) Expiry(now time.Time) time.Time {
	if p.ExpiresAt != 0 {
		return time.Unix(p.ExpiresAt, 0)
	}
	return now.Add(time.Duration(p.ExpiresIn) * time.Second)
}
