package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"

	"mercadinho/backend/internal/domain"
)

func TestNoopCacheNeverHits(t *testing.T) {
	var c InsightsCache = NoopInsightsCache{}
	if err := c.Set(context.Background(), "k", &domain.InsightsResponse{Text: "x"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, ok, err := c.Get(context.Background(), "k")
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisCacheIntegration(t *testing.T) {
	addr := os.Getenv("MERCADINHO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set MERCADINHO_TEST_REDIS_ADDR to run redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("MERCADINHO_TEST_REDIS_PASSWORD")})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	key := fmt.Sprintf("it:%d:insights", time.Now().UnixNano())
	t.Cleanup(func() { _ = client.Del(ctx, key).Err() })

	c := NewRedisInsightsCache(client)
	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss for fresh key, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, key, &domain.InsightsResponse{Text: "Reponha o arroz."}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Text != "Reponha o arroz." {
		t.Fatalf("unexpected cached text %q", got.Text)
	}
}
