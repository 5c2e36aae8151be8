package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEFAULT_MARGIN_PERCENT", "")
	t.Setenv("PHONE_REGION", "")
	t.Setenv("STATE_KEY_PREFIX", "")
	t.Setenv("SEED_DEMO_DATA", "")
	t.Setenv("BACKUP_PROVIDER", "")

	cfg := Load()
	if !cfg.DefaultMarginPercent.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("expected default margin 35, got %s", cfg.DefaultMarginPercent)
	}
	if cfg.PhoneRegion != "BR" {
		t.Fatalf("expected BR phone region, got %q", cfg.PhoneRegion)
	}
	if cfg.StateKeyPrefix != "mercadinho:" {
		t.Fatalf("unexpected key prefix %q", cfg.StateKeyPrefix)
	}
	if !cfg.SeedDemoData {
		t.Fatalf("expected demo data by default")
	}
	if cfg.Backup.Provider != "" {
		t.Fatalf("expected cloud backup disabled, got %q", cfg.Backup.Provider)
	}
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	t.Setenv("DEFAULT_MARGIN_PERCENT", "-10")
	t.Setenv("BUSY_LOCK_TTL_SECONDS", "zero")
	t.Setenv("BACKUP_PROVIDER", " S3 ")

	cfg := Load()
	if !cfg.DefaultMarginPercent.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("expected negative margin to fall back to 35, got %s", cfg.DefaultMarginPercent)
	}
	if cfg.BusyLockTTLSeconds != 30 {
		t.Fatalf("expected lock ttl fallback 30, got %d", cfg.BusyLockTTLSeconds)
	}
	if cfg.Backup.Provider != "s3" {
		t.Fatalf("expected normalized provider, got %q", cfg.Backup.Provider)
	}
}
