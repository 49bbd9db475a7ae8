package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/config"
)

func newRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	limiter, err := NewRedisLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })
	return limiter, mr
}

func TestRedisLimiterCountsWithinWindow(t *testing.T) {
	limiter, mr := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "post:portfolios|alice", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 1-i, d.Remaining)
	}
	d, err := limiter.Allow(ctx, "post:portfolios|alice", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Zero(t, d.Remaining)
	assert.True(t, d.ResetAt.After(time.Now()))
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	assert.True(t, mr.Exists(keyPrefix+"post:portfolios|alice"))

	mr.FastForward(time.Minute + time.Second)
	d, err = limiter.Allow(ctx, "post:portfolios|alice", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiterReportsBackendFailure(t *testing.T) {
	limiter, mr := newRedisLimiter(t)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "k", 1, time.Minute)
	assert.Error(t, err)
}

func TestNewRedisLimiterRequiresClient(t *testing.T) {
	_, err := NewRedisLimiter(nil, nil)
	assert.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	limiter, closeFn, err := New(ctx, config.Config{})
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.NoError(t, closeFn())

	limiter, closeFn, err = New(ctx, config.Config{RateLimitRequests: 5})
	require.NoError(t, err)
	assert.IsType(t, &MemoryLimiter{}, limiter)
	assert.NoError(t, closeFn())

	mr := miniredis.RunT(t)
	limiter, closeFn, err = New(ctx, config.Config{RateLimitRequests: 5, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisLimiter{}, limiter)
	assert.NoError(t, closeFn())
}

func TestNewFailsWhenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, closeFn, err := New(context.Background(), config.Config{RateLimitRequests: 5, RedisAddr: addr})
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}
