package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix    = "stock:"
	stockKeyTTL       = time.Hour
	idempotencyKeyTTL = 24 * time.Hour
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) SetStockLevel(ctx context.Context, productID int64, inventory int) error {
	key := stockKeyPrefix + strconv.FormatInt(productID, 10)
	return r.client.Set(ctx, key, inventory, stockKeyTTL).Err()
}

func (r *RedisAdapter) GetStockLevel(ctx context.Context, productID int64) (int, bool, error) {
	key := stockKeyPrefix + strconv.FormatInt(productID, 10)

	inventory, err := r.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return inventory, true, nil
}
