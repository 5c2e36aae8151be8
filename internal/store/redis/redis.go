package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"mercadinho/backend/internal/store"
)

type Store struct {
	client goredis.UniversalClient
}

func New(addr string, password string, db int) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: client}
}

// NewWithClient wraps an existing client; Close then closes that client.
func NewWithClient(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Client() goredis.UniversalClient {
	return s.client
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// SaveAll writes every entry inside one MULTI/EXEC block.
func (s *Store) SaveAll(ctx context.Context, entries []store.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, entry := range entries {
			pipe.Set(ctx, entry.Key, entry.Value, 0)
		}
		return nil
	})
	return err
}
