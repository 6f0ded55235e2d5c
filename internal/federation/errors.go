package federation

import (
	"errors"
	"fmt"
)

var (
	ErrProviderNotFound      = errors.New("provider not found or not enabled")
	ErrProviderMisconfigured = errors.New("provider is misconfigured")
	ErrInvalidAuthState      = errors.New("invalid auth state parameter")
	ErrExchangeCodeFailed    = errors.New("failed to exchange authorization code for token")
	ErrFetchProfileFailed    = errors.New("failed to fetch user profile from provider")
)

// TransportError reports an HTTP-level failure talking to a provider's
// token endpoint. Refresh callers treat it as recoverable: the record is
// flagged failed and the batch moves on.
type TransportError struct {
	// StatusCode is the HTTP status when the endpoint answered, 0 when
	// the request never completed.
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token endpoint returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("token endpoint unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is, or wraps, a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
