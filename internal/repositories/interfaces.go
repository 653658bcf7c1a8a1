package repositories

import (
	"context"
	"time"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// TableStore is the tabular system of record. Every table is a list of rows whose
// first row holds the column headers.
type TableStore interface {
	Read(ctx context.Context, table string) ([][]string, error)
	Append(ctx context.Context, table string, row []string) error
	// ReplaceAll clears the table and writes rows (header included) in order.
	ReplaceAll(ctx context.Context, table string, rows [][]string) error
	// UpdateCell overwrites one cell; row and col are 0-based with row 0 the header.
	UpdateCell(ctx context.Context, table string, row, col int, value string) error
}

// CounterStore hands out strictly increasing values per key, starting at 1.
type CounterStore interface {
	Increment(ctx context.Context, key string) (int64, error)
}

// SessionRepository holds one dialog session per chat user.
type SessionRepository interface {
	// Get returns the stored session or a fresh idle one when none exists.
	Get(ctx context.Context, userID int64) (domain.Session, error)
	Set(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context, userID int64) error
	// CleanupExpired drops sessions idle since before now minus the TTL, up to limit entries.
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// OutboxStore durably records commits whose rows may not all have been written.
type OutboxStore interface {
	Put(ctx context.Context, entry domain.PendingCommit) error
	Pending(ctx context.Context, limit int) ([]domain.PendingCommit, error)
	Delete(ctx context.Context, id string) error
}

// HealthRepository aggregates dependency probes for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}
