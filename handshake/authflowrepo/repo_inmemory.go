package authflowrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.Mutex
	states map[string]AuthFlowState
	ttl    time.Duration
	now    func() time.Time
}

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryRepo{
		states: make(map[string]AuthFlowState),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (r *InMemoryRepo) WithClock(now func() time.Time) *InMemoryRepo {
	r.now = now
	return r
}

// Put records a pending flow. CreatedAt and ExpiresAt are filled in when unset.
func (r *InMemoryRepo) Put(_ context.Context, authState AuthFlowState) error {
	if authState.State == "" {
		return errors.New("state cannot be empty")
	}
	now := r.now()
	if authState.CreatedAt.IsZero() {
		authState.CreatedAt = now
	}
	if authState.ExpiresAt.IsZero() {
		authState.ExpiresAt = authState.CreatedAt.Add(r.ttl)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.states[authState.State]; exists {
		return errors.New("state already pending")
	}
	r.states[authState.State] = authState
	return nil
}

// Take removes and returns the pending flow for state.
func (r *InMemoryRepo) Take(_ context.Context, state string) (AuthFlowState, error) {
	if state == "" {
		return AuthFlowState{}, apperrors.ErrInvalidState
	}

	r.mu.Lock()
	authState, exists := r.states[state]
	delete(r.states, state)
	r.mu.Unlock()

	if !exists || authState.Expired(r.now()) {
		return AuthFlowState{}, apperrors.ErrInvalidState
	}
	return authState, nil
}

// EvictExpired drops abandoned handshakes and reports how many were removed.
func (r *InMemoryRepo) EvictExpired() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for state, authState := range r.states {
		if authState.Expired(now) {
			delete(r.states, state)
			removed++
		}
	}
	return removed
}

func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
