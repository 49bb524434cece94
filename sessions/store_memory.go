package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
	"github.com/jrsteele09/lms-quiz-gate/internal/metrics"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a thread-safe, process-local Store. A restart loses every session.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[Token]Principal
	now      func() time.Time
}

// NewInMemoryStore creates a new in-memory session store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[Token]Principal),
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Create(ctx context.Context, p Principal) (Token, error) {
	if p.UserID == "" && p.AccessToken == "" {
		return "", errors.New("[sessions Create] principal has neither user id nor access token")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		token, err := NewToken()
		if err != nil {
			return "", err
		}
		if _, exists := s.sessions[token]; exists {
			continue
		}
		s.sessions[token] = p
		metrics.SetActiveSessions(len(s.sessions))
		return token, nil
	}
}

func (s *InMemoryStore) Get(ctx context.Context, token Token) (Principal, error) {
	if token == "" {
		return Principal{}, apperrors.ErrSessionNotFound
	}

	s.mu.RLock()
	p, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Principal{}, apperrors.ErrSessionNotFound
	}

	if p.Expired(s.now()) {
		s.mu.Lock()
		// Only remove the entry we looked at.
		if current, ok := s.sessions[token]; ok && current.Expired(s.now()) {
			delete(s.sessions, token)
			metrics.SetActiveSessions(len(s.sessions))
		}
		s.mu.Unlock()
		return Principal{}, apperrors.Join(apperrors.ErrSessionNotFound, apperrors.ErrSessionExpired)
	}
	return p, nil
}

func (s *InMemoryStore) Destroy(ctx context.Context, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	metrics.SetActiveSessions(len(s.sessions))
	return nil
}

// EvictExpired removes every expired session and returns how many were removed.
func (s *InMemoryStore) EvictExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, p := range s.sessions {
		if p.Expired(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	metrics.SetActiveSessions(len(s.sessions))
	return removed
}

// Len returns the number of sessions currently held, expired or not.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunJanitor calls EvictExpired every interval until ctx is done.
func (s *InMemoryStore) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.EvictExpired()
		}
	}
}
