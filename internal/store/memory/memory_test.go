package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/store"
)

func TestLoadMissingKeyReturnsNotFound(t *testing.T) {
	s := New()
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveCopiesValue(t *testing.T) {
	ctx := context.Background()
	s := New()
	value := []byte(`[1,2,3]`)
	if err := s.Save(ctx, "k", value); err != nil {
		t.Fatalf("save: %v", err)
	}
	value[0] = 'x'

	got, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `[1,2,3]` {
		t.Fatalf("stored value was aliased: %s", got)
	}
}

func TestSaveAllWritesEveryEntry(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.SaveAll(ctx, []store.Entry{{Key: "a", Value: []byte("1")}, {Key: "b", Value: []byte("2")}})
	if err != nil {
		t.Fatalf("save all: %v", err)
	}
	for key, want := range map[string]string{"a": "1", "b": "2"} {
		got, err := s.Load(ctx, key)
		if err != nil || string(got) != want {
			t.Fatalf("key %s: got %q err %v", key, got, err)
		}
	}
	if s.Saves() != 1 {
		t.Fatalf("expected one write, got %d", s.Saves())
	}
}

func TestNewSeededUsesPrefix(t *testing.T) {
	s := NewSeeded("test:")
	raw, err := s.Load(context.Background(), "test:"+store.KeyProducts)
	if err != nil {
		t.Fatalf("load seeded products: %v", err)
	}
	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(products) != 5 {
		t.Fatalf("expected 5 seeded products, got %d", len(products))
	}
	if _, err := s.Load(context.Background(), store.KeyProducts); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected unprefixed key to be absent, got %v", err)
	}
}
