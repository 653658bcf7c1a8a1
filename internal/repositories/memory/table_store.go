package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

// TableStore keeps tables in process memory. It backs local development and tests.
type TableStore struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

var _ repositories.TableStore = (*TableStore)(nil)

// NewTableStore returns a store seeded with a copy of tables.
func NewTableStore(tables map[string][][]string) *TableStore {
	store := &TableStore{tables: make(map[string][][]string, len(tables))}
	for name, rows := range tables {
		store.tables[name] = copyRows(rows)
	}
	return store
}

// Read returns a copy of the table; a missing table reads as empty.
func (s *TableStore) Read(_ context.Context, table string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.tables[table]), nil
}

// Append adds row at the end of the table, creating it when absent.
func (s *TableStore) Append(_ context.Context, table string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], append([]string(nil), row...))
	return nil
}

// ReplaceAll swaps the table contents in one step.
func (s *TableStore) ReplaceAll(_ context.Context, table string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = copyRows(rows)
	return nil
}

// UpdateCell overwrites one cell, padding the row when it is shorter than col.
func (s *TableStore) UpdateCell(_ context.Context, table string, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	if row < 0 || row >= len(rows) || col < 0 {
		return &repositories.StoreError{Op: "memory.update_cell", Err: fmt.Errorf("cell %d,%d out of range in %s", row, col, table), NotFound: true}
	}
	for len(rows[row]) <= col {
		rows[row] = append(rows[row], "")
	}
	rows[row][col] = value
	return nil
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
