package authflowrepo

import (
	"context"
	"time"
)

// DefaultTTL bounds how long a user may spend on the provider's login page.
const DefaultTTL = 10 * time.Minute

// AuthFlowState is a handshake that has been started and is waiting for the
// provider callback.
type AuthFlowState struct {
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a AuthFlowState) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}

// Repo holds pending handshakes. Take is one-shot: a state value can be
// redeemed by at most one callback.
type Repo interface {
	Put(ctx context.Context, authState AuthFlowState) error
	Take(ctx context.Context, state string) (AuthFlowState, error)
}
