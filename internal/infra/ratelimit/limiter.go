// Package ratelimit provides the fixed-window limiters applied to protected
// routes: an in-process map, or Redis when several replicas share a budget.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/config"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
)

var ErrCapacityExceeded = errors.New("rate limiter capacity exceeded")

const pingTimeout = 2 * time.Second

// New returns the limiter the configuration asks for, or nil when rate
// limiting is disabled. The returned close function is never nil.
func New(ctx context.Context, cfg config.Config) (domain.RateLimiter, func() error, error) {
	noop := func() error { return nil }
	if cfg.RateLimitRequests <= 0 {
		return nil, noop, nil
	}
	if cfg.RedisAddr == "" {
		return NewMemoryLimiter(MemoryOptions{MaxKeys: cfg.RateLimitMaxKeys}), noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, noop, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	limiter, err := NewRedisLimiter(client, nil)
	if err != nil {
		_ = client.Close()
		return nil, noop, err
	}
	zap.L().Info("rate limiting backed by redis", zap.String("addr", cfg.RedisAddr))
	return limiter, limiter.Close, nil
}
