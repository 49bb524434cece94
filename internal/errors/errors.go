package errors

import "errors"

// Common error types for the quiz gate
var (
	// Identity provider errors
	ErrAuthRejected        = errors.New("identity provider rejected the credential")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrProviderTimeout     = errors.New("identity provider timed out")
	ErrMalformedResponse   = errors.New("identity provider returned a malformed response")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidCookie   = errors.New("invalid session cookie")

	// Handshake errors
	ErrInvalidState      = errors.New("invalid state parameter")
	ErrMissingCode       = errors.New("missing authorization code")
	ErrProviderDenied    = errors.New("authorization denied by provider")
	ErrInvalidTransition = errors.New("invalid handshake transition")

	// General errors
	ErrConfiguration = errors.New("configuration error")
	ErrInternal      = errors.New("internal error")
)

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return errors.Join(errs...)
}
