package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

// CounterStore is a process-local counter. Values restart at 1 after a restart.
type CounterStore struct {
	mu     sync.Mutex
	values map[string]int64
}

var _ repositories.CounterStore = (*CounterStore)(nil)

// NewCounterStore constructs an empty counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{values: make(map[string]int64)}
}

// Increment adds one to key and returns the new value.
func (s *CounterStore) Increment(_ context.Context, key string) (int64, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, key, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key]++
	return s.values[key], nil
}
