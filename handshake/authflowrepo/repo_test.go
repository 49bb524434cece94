package authflowrepo_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/lms-quiz-gate/handshake/authflowrepo"
	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo_TakeIsOneShot(t *testing.T) {
	ctx := context.Background()
	repo := authflowrepo.NewInMemoryRepo(time.Minute)

	require.NoError(t, repo.Put(ctx, authflowrepo.AuthFlowState{State: "abc"}))
	assert.Error(t, repo.Put(ctx, authflowrepo.AuthFlowState{State: "abc"}), "duplicate state")

	got, err := repo.Take(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.State)
	assert.Equal(t, time.Minute, got.ExpiresAt.Sub(got.CreatedAt))

	_, err = repo.Take(ctx, "abc")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestInMemoryRepo_Rejections(t *testing.T) {
	ctx := context.Background()
	repo := authflowrepo.NewInMemoryRepo(0)

	assert.Error(t, repo.Put(ctx, authflowrepo.AuthFlowState{}))

	_, err := repo.Take(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = repo.Take(ctx, "never-issued")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestInMemoryRepo_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := authflowrepo.NewInMemoryRepo(10 * time.Minute).WithClock(func() time.Time { return now })

	require.NoError(t, repo.Put(ctx, authflowrepo.AuthFlowState{State: "late"}))
	require.NoError(t, repo.Put(ctx, authflowrepo.AuthFlowState{State: "abandoned"}))

	now = now.Add(10 * time.Minute)

	_, err := repo.Take(ctx, "late")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	assert.Equal(t, 1, repo.EvictExpired())
	assert.Equal(t, 0, repo.Len())
}

func TestInMemoryRepo_ConcurrentTake(t *testing.T) {
	ctx := context.Background()
	repo := authflowrepo.NewInMemoryRepo(time.Minute)
	require.NoError(t, repo.Put(ctx, authflowrepo.AuthFlowState{State: "race"}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Take(ctx, "race"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
