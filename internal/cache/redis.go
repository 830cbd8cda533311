package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/Georisk/internal/providers"
)

const (
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "georisk:"
)

// Connect parses a redis:// URL and checks the connection. An empty URL
// returns nil, nil: the cache is optional.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisCache stores provider observations as JSON with a TTL.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (providers.Observation, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return providers.Observation{}, false, nil
	}
	if err != nil {
		return providers.Observation{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var obs providers.Observation
	if err := json.Unmarshal(raw, &obs); err != nil {
		// A corrupt entry is a miss; the next primary result overwrites it.
		return providers.Observation{}, false, nil
	}
	return obs, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, obs providers.Observation) error {
	raw, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
