package pebble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

const keyPrefix = "outbox/"

// OutboxStore persists pending commits in a local Pebble database so a crash between
// the order row and its lines can be repaired on the next replay.
type OutboxStore struct {
	db *pebble.DB
}

var _ repositories.OutboxStore = (*OutboxStore)(nil)

// NewOutboxStore opens (or creates) the outbox database in dir.
func NewOutboxStore(dir string) (*OutboxStore, error) {
	if dir == "" {
		return nil, errors.New("pebble outbox: directory is required")
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &OutboxStore{db: db}, nil
}

// Close flushes and closes the database.
func (s *OutboxStore) Close() error { return s.db.Close() }

// Put writes the entry with a synced WAL so it survives a crash right after checkout starts.
func (s *OutboxStore) Put(_ context.Context, entry domain.PendingCommit) error {
	if entry.ID == "" {
		return errors.New("pebble outbox: entry id is required")
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("pebble outbox: encode %s: %w", entry.ID, err)
	}
	if err := s.db.Set(entryKey(entry.ID), payload, pebble.Sync); err != nil {
		return &repositories.StoreError{Op: "pebble.put", Err: err, Unavailable: true}
	}
	return nil
}

// Pending returns up to limit entries in key order; limit <= 0 returns all.
func (s *OutboxStore) Pending(_ context.Context, limit int) ([]domain.PendingCommit, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: prefixUpperBound(keyPrefix),
	})
	if err != nil {
		return nil, &repositories.StoreError{Op: "pebble.pending", Err: err, Unavailable: true}
	}
	defer it.Close()

	var out []domain.PendingCommit
	for it.First(); it.Valid(); it.Next() {
		var entry domain.PendingCommit
		if err := json.Unmarshal(it.Value(), &entry); err != nil {
			return nil, fmt.Errorf("pebble outbox: decode %s: %w", it.Key(), err)
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := it.Error(); err != nil {
		return nil, &repositories.StoreError{Op: "pebble.pending", Err: err, Unavailable: true}
	}
	return out, nil
}

// Delete removes the entry; deleting a missing entry is not an error.
func (s *OutboxStore) Delete(_ context.Context, id string) error {
	if err := s.db.Delete(entryKey(id), pebble.Sync); err != nil {
		return &repositories.StoreError{Op: "pebble.delete", Err: err, Unavailable: true}
	}
	return nil
}

func entryKey(id string) []byte {
	return []byte(keyPrefix + id)
}

func prefixUpperBound(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}
