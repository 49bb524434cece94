package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for sessions
	sessionKeyPrefix = "quizgate:session:"

	maxCreateAttempts = 3
)

var _ Store = (*RedisStore)(nil)

// RedisStore shares sessions between instances. Keys expire with the session.
type RedisStore struct {
	client *redis.Client
	maxAge time.Duration
	now    func() time.Time
}

// RedisStoreOption configures a RedisStore instance.
type RedisStoreOption func(*RedisStore)

// WithDefaultMaxAge sets the TTL used when a Principal carries no ExpiresAt.
func WithDefaultMaxAge(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.maxAge = d
	}
}

// NewRedisStore constructs a Redis-backed session store.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		maxAge: 24 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func sessionKey(token Token) string {
	return sessionKeyPrefix + string(token)
}

// Create uses SET NX so an existing token is never overwritten.
func (s *RedisStore) Create(ctx context.Context, p Principal) (Token, error) {
	if p.UserID == "" && p.AccessToken == "" {
		return "", errors.New("[sessions Create] principal has neither user id nor access token")
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = now.Add(s.maxAge)
	}
	ttl := p.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return "", apperrors.ErrSessionExpired
	}

	value, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("[sessions Create] encode principal: %w", err)
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		token, err := NewToken()
		if err != nil {
			return "", err
		}
		ok, err := s.client.SetNX(ctx, sessionKey(token), value, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("[sessions Create] redis: %w", err)
		}
		if ok {
			return token, nil
		}
	}
	return "", fmt.Errorf("[sessions Create] could not mint a unique token: %w", apperrors.ErrInternal)
}

func (s *RedisStore) Get(ctx context.Context, token Token) (Principal, error) {
	if token == "" {
		return Principal{}, apperrors.ErrSessionNotFound
	}
	value, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Principal{}, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return Principal{}, fmt.Errorf("[sessions Get] redis: %w", err)
	}

	var p Principal
	if err := json.Unmarshal(value, &p); err != nil {
		return Principal{}, fmt.Errorf("[sessions Get] decode principal: %w", err)
	}
	// Redis expiry has second granularity.
	if p.Expired(s.now()) {
		return Principal{}, apperrors.Join(apperrors.ErrSessionNotFound, apperrors.ErrSessionExpired)
	}
	return p, nil
}

func (s *RedisStore) Destroy(ctx context.Context, token Token) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("[sessions Destroy] redis: %w", err)
	}
	return nil
}

// Health pings Redis.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
