package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"mercadinho/backend/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("MERCADINHO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set MERCADINHO_TEST_REDIS_ADDR to run redis integration test")
	}
	s := New(addr, os.Getenv("MERCADINHO_TEST_REDIS_PASSWORD"), 0)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTripIntegration(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	prefix := fmt.Sprintf("it:%d:", time.Now().UnixNano())
	t.Cleanup(func() {
		_ = s.client.Del(ctx, prefix+"a", prefix+"b").Err()
	})

	if _, err := s.Load(ctx, prefix+"a"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a fresh key, got %v", err)
	}

	err := s.SaveAll(ctx, []store.Entry{
		{Key: prefix + "a", Value: []byte(`{"x":1}`)},
		{Key: prefix + "b", Value: []byte(`[]`)},
	})
	if err != nil {
		t.Fatalf("save all: %v", err)
	}

	got, err := s.Load(ctx, prefix+"a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"x":1}` {
		t.Fatalf("unexpected value %s", got)
	}
}
