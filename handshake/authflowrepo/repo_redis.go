package authflowrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
	"github.com/redis/go-redis/v9"
)

const authFlowKeyPrefix = "quizgate:authflow:"

var _ Repo = (*RedisRepo)(nil)

// RedisRepo shares pending handshakes between instances, so the callback may
// land on a different process than the one that issued the redirect.
type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisRepo(client *redis.Client, ttl time.Duration) *RedisRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRepo{client: client, ttl: ttl, now: time.Now}
}

func authFlowKey(state string) string {
	return authFlowKeyPrefix + state
}

func (r *RedisRepo) Put(ctx context.Context, authState AuthFlowState) error {
	if authState.State == "" {
		return errors.New("state cannot be empty")
	}
	if authState.CreatedAt.IsZero() {
		authState.CreatedAt = r.now()
	}
	if authState.ExpiresAt.IsZero() {
		authState.ExpiresAt = authState.CreatedAt.Add(r.ttl)
	}
	ttl := authState.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("[authflowrepo Put] flow already expired: %w", apperrors.ErrInvalidState)
	}

	value, err := json.Marshal(authState)
	if err != nil {
		return fmt.Errorf("[authflowrepo Put] encode: %w", err)
	}
	ok, err := r.client.SetNX(ctx, authFlowKey(authState.State), value, ttl).Result()
	if err != nil {
		return fmt.Errorf("[authflowrepo Put] redis: %w", err)
	}
	if !ok {
		return errors.New("state already pending")
	}
	return nil
}

// Take uses GETDEL so two racing callbacks cannot both redeem a state.
func (r *RedisRepo) Take(ctx context.Context, state string) (AuthFlowState, error) {
	if state == "" {
		return AuthFlowState{}, apperrors.ErrInvalidState
	}
	value, err := r.client.GetDel(ctx, authFlowKey(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return AuthFlowState{}, apperrors.ErrInvalidState
	}
	if err != nil {
		return AuthFlowState{}, fmt.Errorf("[authflowrepo Take] redis: %w", err)
	}

	var authState AuthFlowState
	if err := json.Unmarshal(value, &authState); err != nil {
		return AuthFlowState{}, fmt.Errorf("[authflowrepo Take] decode: %w", err)
	}
	if authState.Expired(r.now()) {
		return AuthFlowState{}, apperrors.ErrInvalidState
	}
	return authState, nil
}
