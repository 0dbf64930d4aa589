package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const defaultRenderTTL = 24 * time.Hour

// RenderCache keeps rendered message markup in redis, keyed by a hash of
// the renderer fingerprint and the source text. Entries expire after the TTL.
type RenderCache struct {
	client *redisv9.Client
	prefix string
	ttl    time.Duration
}

func NewRenderCache(client *redisv9.Client, namespace string, ttl time.Duration) *RenderCache {
	if ttl <= 0 {
		ttl = defaultRenderTTL
	}
	if namespace == "" {
		namespace = "studymate"
	}
	return &RenderCache{
		client: client,
		prefix: namespace + ":render:",
		ttl:    ttl,
	}
}

func (c *RenderCache) Get(ctx context.Context, key string) (string, bool, error) {
	html, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redisv9.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get render failed: %w", err)
	}
	return html, true, nil
}

func (c *RenderCache) Set(ctx context.Context, key, html string) error {
	if err := c.client.Set(ctx, c.key(key), html, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set render failed: %w", err)
	}
	return nil
}

func (c *RenderCache) key(key string) string {
	return c.prefix + key
}
