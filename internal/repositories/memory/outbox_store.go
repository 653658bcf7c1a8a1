package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

// OutboxStore is a non-durable outbox used when no outbox directory is configured.
type OutboxStore struct {
	mu      sync.Mutex
	entries map[string]domain.PendingCommit
}

var _ repositories.OutboxStore = (*OutboxStore)(nil)

// NewOutboxStore constructs an empty outbox.
func NewOutboxStore() *OutboxStore {
	return &OutboxStore{entries: make(map[string]domain.PendingCommit)}
}

// Put inserts or replaces the entry.
func (s *OutboxStore) Put(_ context.Context, entry domain.PendingCommit) error {
	if entry.ID == "" {
		return errors.New("outbox: entry id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

// Pending returns up to limit entries ordered by id; limit <= 0 returns all.
func (s *OutboxStore) Pending(_ context.Context, limit int) ([]domain.PendingCommit, error) {
	s.mu.Lock()
	out := make([]domain.PendingCommit, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes the entry; deleting a missing entry is not an error.
func (s *OutboxStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}
