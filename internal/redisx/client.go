package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Ping fails fast at startup when Redis is unreachable.
func Ping(ctx context.Context, rdb *redis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Claim marks id as processed by consumer. It reports false when another
// delivery already claimed it within ttl.
func Claim(ctx context.Context, rdb redis.Cmdable, consumer, id string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, consumer, id), time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Release undoes a claim so a failed message can be retried.
func Release(ctx context.Context, rdb redis.Cmdable, consumer, id string) error {
	return rdb.Del(ctx, fmt.Sprintf(KeyDedup, consumer, id)).Err()
}
