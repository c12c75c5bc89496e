package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter backed by Redis, shared by all
// replicas. The window key expires on its own, so a crashed replica leaves
// no state behind.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := "ratelimit:" + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := int(incr.Val())
	resetAt := time.Now().Add(ttl.Val())

	if count > l.limit {
		return Result{Allowed: false, Limit: l.limit, ResetAt: resetAt}, nil
	}
	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - count,
		ResetAt:   resetAt,
	}, nil
}
