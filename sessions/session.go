package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// tokenBytes is the entropy of a session token (256 bits).
const tokenBytes = 32

// Token is the opaque, client-held session identifier.
type Token string

// Principal is an authenticated LearnWorlds user and the credentials this
// service holds on their behalf.
type Principal struct {
	UserID       string          `json:"user_id"`
	Email        string          `json:"email,omitempty"`
	RawProfile   json.RawMessage `json:"raw_profile,omitempty"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	TokenExpiry  time.Time       `json:"token_expiry,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session lifetime has passed at now.
func (p Principal) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// Store maps session tokens to principals. Implementations must be safe for
// concurrent use; each token is independent of every other.
type Store interface {
	// Create stores p under a newly minted token.
	Create(ctx context.Context, p Principal) (Token, error)
	// Get returns ErrSessionNotFound for unknown, destroyed or expired tokens.
	Get(ctx context.Context, token Token) (Principal, error)
	// Destroy is idempotent.
	Destroy(ctx context.Context, token Token) error
}

// NewToken creates a random base64url token.
func NewToken() (Token, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[sessions NewToken] %w", err)
	}
	return Token(base64.RawURLEncoding.EncodeToString(b)), nil
}
