package cache

import (
	"context"
	"time"

	"mercadinho/backend/internal/domain"
)

type InsightsCache interface {
	Get(ctx context.Context, key string) (*domain.InsightsResponse, bool, error)
	Set(ctx context.Context, key string, value *domain.InsightsResponse, ttl time.Duration) error
}

type NoopInsightsCache struct{}

func (NoopInsightsCache) Get(_ context.Context, _ string) (*domain.InsightsResponse, bool, error) {
	return nil, false, nil
}

func (NoopInsightsCache) Set(_ context.Context, _ string, _ *domain.InsightsResponse, _ time.Duration) error {
	return nil
}
