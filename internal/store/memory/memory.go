package memory

import (
	"context"
	"sync"

	"mercadinho/backend/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	saves  int
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneBytes(value), nil
}

func (s *Store) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = cloneBytes(value)
	s.saves++
	return nil
}

func (s *Store) SaveAll(_ context.Context, entries []store.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		s.values[entry.Key] = cloneBytes(entry.Value)
	}
	s.saves++
	return nil
}

// Saves counts write calls, letting tests assert write-through happened.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *Store) Close() error {
	return nil
}

func cloneBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dup := make([]byte, len(src))
	copy(dup, src)
	return dup
}
