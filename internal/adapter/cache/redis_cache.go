package cache

import (
	"context"
	"time"

	"github.com/lavanya11112/SEPROJECT/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisPaymentStatusCache stores the last known status of each gateway order
// together with its owner, so status polling does not hit MySQL.
type RedisPaymentStatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPaymentStatusCache(rdb *redis.Client, ttl time.Duration) *RedisPaymentStatusCache {
	return &RedisPaymentStatusCache{rdb: rdb, ttl: ttl}
}

func paymentStatusKey(gatewayOrderID string) string {
	return "payment:status:" + gatewayOrderID
}

func (c *RedisPaymentStatusCache) SetStatus(ctx context.Context, gatewayOrderID, userID, status string) error {
	key := paymentStatusKey(gatewayOrderID)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, "user_id", userID, "status", status)
		if c.ttl > 0 {
			p.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	return err
}

func (c *RedisPaymentStatusCache) GetStatus(ctx context.Context, gatewayOrderID string) (string, string, bool, error) {
	vals, err := c.rdb.HGetAll(ctx, paymentStatusKey(gatewayOrderID)).Result()
	if err != nil {
		return "", "", false, err
	}
	status, ok := vals["status"]
	if !ok {
		return "", "", false, nil
	}
	return vals["user_id"], status, true, nil
}

// DropStatus removes the entry so the next poll reads through to MySQL.
func (c *RedisPaymentStatusCache) DropStatus(ctx context.Context, gatewayOrderID string) error {
	return c.rdb.Del(ctx, paymentStatusKey(gatewayOrderID)).Err()
}

var _ usecase.PaymentStatusCache = (*RedisPaymentStatusCache)(nil)
