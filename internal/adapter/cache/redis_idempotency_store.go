package cache

import (
	"context"
	"errors"
	"time"

	"github.com/lavanya11112/SEPROJECT/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyStore backs both checkout idempotency keys and the webhook
// event ledger. A lock key marks a request as claimed; a separate map key holds
// the result to replay.
type RedisIdempotencyStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = "idemp"
	}
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (s *RedisIdempotencyStore) lockKey(scope, key string) string {
	return s.prefix + ":" + scope + ":" + key
}

func (s *RedisIdempotencyStore) mapKey(scope, key string) string {
	return s.prefix + ":map:" + scope + ":" + key
}

func (s *RedisIdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, s.lockKey(scope, key), "1", s.ttl).Result()
}

func (s *RedisIdempotencyStore) Remember(ctx context.Context, scope, key, value string) error {
	return s.rdb.Set(ctx, s.mapKey(scope, key), value, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, s.mapKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Release drops the claim so the same key can be processed again.
func (s *RedisIdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, s.lockKey(scope, key)).Err()
}

var _ usecase.IdempotencyStore = (*RedisIdempotencyStore)(nil)
