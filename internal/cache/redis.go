package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"mercadinho/backend/internal/domain"
)

// RedisInsightsCache shares the client of the Redis state store when one is configured.
type RedisInsightsCache struct {
	client redis.UniversalClient
}

func NewRedisInsightsCache(client redis.UniversalClient) *RedisInsightsCache {
	return &RedisInsightsCache{client: client}
}

func (c *RedisInsightsCache) Get(ctx context.Context, key string) (*domain.InsightsResponse, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var resp domain.InsightsResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

func (c *RedisInsightsCache) Set(ctx context.Context, key string, value *domain.InsightsResponse, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
