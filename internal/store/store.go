package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// Collection keys. The namespace prefix is applied by the caller.
const (
	KeyProducts  = "products"
	KeySales     = "sales"
	KeyExpenses  = "expenses"
	KeyCustomers = "customers"
	KeySettings  = "settings"
)

type Entry struct {
	Key   string
	Value []byte
}

// KV is the persistence adapter: a namespaced JSON key-value store.
// Load returns ErrNotFound for keys that were never saved.
type KV interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	SaveAll(ctx context.Context, entries []Entry) error
}
