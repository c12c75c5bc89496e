package proof

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const replayKeyPrefix = "proof:fp:"

// RedisReplayStore is the distributed replay cache. SET NX gives the
// first-writer-wins guarantee across instances; Redis expiry enforces the
// proof validity window.
type RedisReplayStore struct {
	client *redis.Client
}

func NewRedisReplayStore(client *redis.Client) *RedisReplayStore {
	return &RedisReplayStore{client: client}
}

func (s *RedisReplayStore) Consume(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	// Value is a marker; key existence is what matters.
	return s.client.SetNX(ctx, replayKeyPrefix+fingerprint, "1", ttl).Result()
}
