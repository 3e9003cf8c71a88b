package client

import (
	"context"
	"sync"
)

// state holds a store's last successful value and its loading flag
type state[T any] struct {
	mu      sync.RWMutex
	value   T
	loading bool
}

func (s *state[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *state[T]) update(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.value)
}

func (s *state[T]) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Loading reports whether a request is in flight
func (s *state[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// track marks the store loading for the duration of fn
func (s *state[T]) track(ctx context.Context, fn func(context.Context) error) error {
	s.setLoading(true)
	defer s.setLoading(false)
	return fn(ctx)
}
