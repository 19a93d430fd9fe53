// Package memory is an in-process Store, used by default and in tests.
package memory

import (
	"context"
	"sync"

	"litepay/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	items map[string][]byte
	saves int
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: map[string][]byte{}}
}

// Save copies value so later mutation by the caller cannot leak in.
func (s *Store) Save(_ context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	s.saves++
	return nil
}

func (s *Store) Load(_ context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, storage.ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Saves reports how many Save calls succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
