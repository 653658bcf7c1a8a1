package sheets

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

var counterHeader = []string{"clave", "valor"}

// CounterStore keeps one "[key, value]" row per counter in a dedicated sheet.
// Increments are serialised within the process; two processes sharing the
// spreadsheet can still race between the read and the write.
type CounterStore struct {
	tables repositories.TableStore
	sheet  string
	mu     sync.Mutex
}

var _ repositories.CounterStore = (*CounterStore)(nil)

// NewCounterStore stores counters in sheet through tables.
func NewCounterStore(tables repositories.TableStore, sheet string) *CounterStore {
	return &CounterStore{tables: tables, sheet: sheet}
}

// Increment reads the current value, adds one and writes it back.
func (s *CounterStore) Increment(ctx context.Context, key string) (int64, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, key, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.tables.Read(ctx, s.sheet)
	if err != nil {
		return 0, err
	}
	for i, row := range rows {
		if i == 0 || len(row) == 0 || strings.TrimSpace(row[0]) != key {
			continue
		}
		var current int64
		if len(row) > 1 && strings.TrimSpace(row[1]) != "" {
			current, err = strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
			if err != nil {
				return 0, repositories.NewCounterError(repositories.CounterErrorCorrupt, key, err)
			}
		}
		next := current + 1
		if err := s.tables.UpdateCell(ctx, s.sheet, i, 1, strconv.FormatInt(next, 10)); err != nil {
			return 0, err
		}
		return next, nil
	}

	if len(rows) == 0 {
		if err := s.tables.Append(ctx, s.sheet, counterHeader); err != nil {
			return 0, err
		}
	}
	if err := s.tables.Append(ctx, s.sheet, []string{key, "1"}); err != nil {
		return 0, err
	}
	return 1, nil
}
