package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JhostinAleck/asrs/internal/cache"
	"github.com/JhostinAleck/asrs/internal/models"
)

type failingCounterStore struct {
	err error
}

func (f *failingCounterStore) Get(ctx context.Context, key string) (int64, error) {
	return 0, f.err
}

func (f *failingCounterStore) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, f.err
}

func newTestLimiter(store CounterStore) *LimiterService {
	return NewLimiterService(store, LimiterConfig{
		MaxFailedAttempts: 5,
		Window:            5 * time.Minute,
	}, slog.Default())
}

func TestLimiterService_Check_UnderThreshold(t *testing.T) {
	store := cache.NewMemoryCounterStore()
	limiter := newTestLimiter(store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, limiter.RecordFailure(ctx, "10.0.0.1"))
	}

	allowed, err := limiter.Check(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiterService_Check_AtThreshold(t *testing.T) {
	store := cache.NewMemoryCounterStore()
	limiter := newTestLimiter(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.RecordFailure(ctx, "10.0.0.1"))
	}

	allowed, err := limiter.Check(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLimiterService_Check_IsolatedPerIP(t *testing.T) {
	store := cache.NewMemoryCounterStore()
	limiter := newTestLimiter(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.RecordFailure(ctx, "10.0.0.1"))
	}

	allowed, err := limiter.Check(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "a different IP must not be affected")
}

func TestLimiterService_WindowExpiry(t *testing.T) {
	store := cache.NewMemoryCounterStore()
	now := time.Now()
	store.Now = func() time.Time { return now }
	limiter := newTestLimiter(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.RecordFailure(ctx, "10.0.0.1"))
	}

	now = now.Add(5*time.Minute + time.Second)

	allowed, err := limiter.Check(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed, "counter must reset after the window elapses")
}

func TestLimiterService_SlidingWindow(t *testing.T) {
	store := cache.NewMemoryCounterStore()
	now := time.Now()
	store.Now = func() time.Time { return now }
	limiter := newTestLimiter(store)
	ctx := context.Background()

	// Four failures, then another one four minutes later. Each failure
	// pushes the expiry forward, so the count persists past the first
	// failure's original deadline.
	for i := 0; i < 4; i++ {
		require.NoError(t, limiter.RecordFailure(ctx, "10.0.0.1"))
	}
	now = now.Add(4 * time.Minute)
	require.NoError(t, limiter.RecordFailure(ctx, "10.0.0.1"))

	now = now.Add(2 * time.Minute)

	allowed, err := limiter.Check(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed, "the last failure extends the whole window")
}

func TestLimiterService_Check_StoreUnavailable(t *testing.T) {
	limiter := newTestLimiter(&failingCounterStore{err: errors.New("connection refused")})

	_, err := limiter.Check(context.Background(), "10.0.0.1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestLimiterService_RecordFailure_StoreUnavailable(t *testing.T) {
	limiter := newTestLimiter(&failingCounterStore{err: errors.New("connection refused")})

	err := limiter.RecordFailure(context.Background(), "10.0.0.1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestLimiterService_RetryAfterSeconds(t *testing.T) {
	limiter := newTestLimiter(cache.NewMemoryCounterStore())
	assert.Equal(t, 300, limiter.RetryAfterSeconds())
}
