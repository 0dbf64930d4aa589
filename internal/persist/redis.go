package persist

import (
	"context"
	"errors"
	"fmt"

	redisv9 "github.com/redis/go-redis/v9"
)

// RedisBackend stores state keys as plain redis strings without expiry.
// It does not own the client; Close is a no-op.
type RedisBackend struct {
	client *redisv9.Client
}

func NewRedisBackend(client *redisv9.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	raw, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redisv9.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s failed: %w", key, err)
	}
	return raw, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Close() error { return nil }
