package sql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SIMPLIKARG/TESTING/internal/platform/observability"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

// tableRow stores one row of a tabular sheet. Cells are kept as a JSON array so
// tables with differing widths share one relation.
type tableRow struct {
	ID        uint64 `gorm:"primaryKey"`
	Sheet     string `gorm:"size:64;not null;uniqueIndex:idx_sheet_position"`
	Position  int    `gorm:"not null;uniqueIndex:idx_sheet_position"`
	Cells     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (tableRow) TableName() string { return "tabular_rows" }

type counterRow struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     int64  `gorm:"not null"`
	UpdatedAt time.Time
}

func (counterRow) TableName() string { return "sequence_counters" }

const slowQueryThreshold = 500 * time.Millisecond

// Open connects to Postgres and migrates the tabular schema. Slow queries and
// driver errors are reported through log.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sql: dsn is required")
	}
	gormLogger := logger.New(observability.NewPrintfAdapter(log), logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, wrapError("sql.open", err)
	}
	if err := db.AutoMigrate(&tableRow{}, &counterRow{}); err != nil {
		return nil, wrapError("sql.migrate", err)
	}
	return db, nil
}

// TableStore implements the tabular contract over a relational database.
type TableStore struct {
	db *gorm.DB
}

var _ repositories.TableStore = (*TableStore)(nil)

// NewTableStore wraps an opened gorm handle.
func NewTableStore(db *gorm.DB) (*TableStore, error) {
	if db == nil {
		return nil, errors.New("sql table store: db is required")
	}
	return &TableStore{db: db}, nil
}

// Read returns the rows of table ordered by position.
func (s *TableStore) Read(ctx context.Context, table string) ([][]string, error) {
	var records []tableRow
	if err := s.db.WithContext(ctx).Where("sheet = ?", table).Order("position").Find(&records).Error; err != nil {
		return nil, wrapError("sql.read "+table, err)
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		cells, err := decodeCells(rec.Cells)
		if err != nil {
			return nil, wrapError("sql.read "+table, err)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// Append adds row at the next position. An advisory lock keyed on the table name
// serialises concurrent appends.
func (s *TableStore) Append(ctx context.Context, table string, row []string) error {
	cells, err := encodeCells(row)
	if err != nil {
		return wrapError("sql.append "+table, err)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", table).Error; err != nil {
			return err
		}
		var next int
		if err := tx.Model(&tableRow{}).Where("sheet = ?", table).Select("COALESCE(MAX(position) + 1, 0)").Scan(&next).Error; err != nil {
			return err
		}
		return tx.Create(&tableRow{Sheet: table, Position: next, Cells: cells}).Error
	})
	return wrapError("sql.append "+table, err)
}

// ReplaceAll rewrites the table in a single transaction.
func (s *TableStore) ReplaceAll(ctx context.Context, table string, rows [][]string) error {
	records := make([]tableRow, 0, len(rows))
	for i, row := range rows {
		cells, err := encodeCells(row)
		if err != nil {
			return wrapError("sql.replace "+table, err)
		}
		records = append(records, tableRow{Sheet: table, Position: i, Cells: cells})
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sheet = ?", table).Delete(&tableRow{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 200).Error
	})
	return wrapError("sql.replace "+table, err)
}

// UpdateCell overwrites one cell, padding the row when needed.
func (s *TableStore) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec tableRow
		if err := tx.Where("sheet = ? AND position = ?", table, row).Take(&rec).Error; err != nil {
			return err
		}
		cells, err := decodeCells(rec.Cells)
		if err != nil {
			return err
		}
		if col < 0 {
			return gorm.ErrRecordNotFound
		}
		for len(cells) <= col {
			cells = append(cells, "")
		}
		cells[col] = value
		encoded, err := encodeCells(cells)
		if err != nil {
			return err
		}
		return tx.Model(&rec).Update("cells", encoded).Error
	})
	return wrapError("sql.update_cell "+table, err)
}

// CounterStore increments counters with a single upsert statement.
type CounterStore struct {
	db *gorm.DB
}

var _ repositories.CounterStore = (*CounterStore)(nil)

// NewCounterStore wraps an opened gorm handle.
func NewCounterStore(db *gorm.DB) (*CounterStore, error) {
	if db == nil {
		return nil, errors.New("sql counter store: db is required")
	}
	return &CounterStore{db: db}, nil
}

const incrementSQL = `INSERT INTO sequence_counters (key, value, updated_at) VALUES (?, 1, ?)
ON CONFLICT (key) DO UPDATE SET value = sequence_counters.value + 1, updated_at = EXCLUDED.updated_at
RETURNING value`

// Increment returns the next value for key.
func (s *CounterStore) Increment(ctx context.Context, key string) (int64, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, key, nil)
	}
	var value int64
	if err := s.db.WithContext(ctx).Raw(incrementSQL, key, time.Now().UTC()).Scan(&value).Error; err != nil {
		return 0, wrapError("sql.increment "+key, err)
	}
	return value, nil
}

func encodeCells(row []string) (string, error) {
	if row == nil {
		row = []string{}
	}
	data, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("encode cells: %w", err)
	}
	return string(data), nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("decode cells: %w", err)
	}
	return cells, nil
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	storeErr := &repositories.StoreError{Op: op, Err: err}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		storeErr.NotFound = true
	case errors.Is(err, gorm.ErrDuplicatedKey):
		storeErr.Conflict = true
	default:
		storeErr.Unavailable = true
	}
	return storeErr
}
