package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"mercadinho/backend/internal/config"
	"mercadinho/backend/internal/logger"
	"mercadinho/backend/internal/store/memory"
)

func TestOpenStoreFallsBackToSeededMemory(t *testing.T) {
	cfg := config.Config{StateKeyPrefix: "t:", SeedDemoData: true}

	kv, client, closers, err := openStore(context.Background(), cfg, logger.Discard())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if client != nil || len(closers) != 0 {
		t.Fatalf("expected no redis client without REDIS_ADDR")
	}
	if _, ok := kv.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", kv)
	}
	if _, err := kv.Load(context.Background(), "t:products"); err != nil {
		t.Fatalf("expected seeded products: %v", err)
	}
}

func TestOpenStoreFailsWhenPostgresIsUnreachable(t *testing.T) {
	cfg := config.Config{DatabaseURL: "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"}
	if _, _, _, err := openStore(context.Background(), cfg, logger.Discard()); err == nil {
		t.Fatalf("expected an unreachable database to stop startup")
	}
}

func TestWireWithDefaults(t *testing.T) {
	cfg := config.Config{StateKeyPrefix: "t:", SeedDemoData: true, DefaultMarginPercent: decimal.NewFromInt(40), PhoneRegion: "BR", InsightsTTLSeconds: 60}

	deps, err := wire(context.Background(), cfg, logger.Discard())
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	defer deps.close(logger.Discard())

	if got := len(deps.service.ListProducts("")); got != 5 {
		t.Fatalf("expected 5 demo products, got %d", got)
	}
	if !deps.service.Settings().DefaultMarginPercent.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected configured margin")
	}
}
