package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/platform/config"
	"github.com/SIMPLIKARG/TESTING/internal/platform/metrics"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

const (
	tracerName = "github.com/SIMPLIKARG/TESTING/internal/catalog"

	// sharedReadTimeout bounds a coalesced read, which no single caller can cancel.
	sharedReadTimeout = 30 * time.Second
)

var (
	// ErrUnknownEntity is returned when writing an entity without a declared schema.
	ErrUnknownEntity = errors.New("catalog: unknown entity")
	// ErrOrderNotFound is returned by UpdateOrderStatus when no row carries the order id.
	ErrOrderNotFound = errors.New("catalog: order not found")
	// ErrInvalidStatus is returned by UpdateOrderStatus for unknown status values.
	ErrInvalidStatus = errors.New("catalog: invalid order status")
)

// Status classifies the outcome of a fetch.
type Status int

const (
	// StatusOK means the store answered with at least one valid record.
	StatusOK Status = iota
	// StatusEmpty means the store answered but holds no valid records.
	StatusEmpty
	// StatusUnavailable means the store could not be read.
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Result is the outcome of Fetch. When Status is StatusUnavailable, Records may
// still hold the fallback dataset, in which case Fallback is true.
type Result struct {
	Records  []Record
	Status   Status
	Fallback bool
	Err      error
}

// Deps bundles collaborators of the catalog repository.
type Deps struct {
	Store          repositories.TableStore
	Tables         config.CatalogConfig
	FallbackMode   string
	Fallback       Dataset
	Logger         *zap.Logger
	Metrics        *metrics.Registry
	TracerProvider trace.TracerProvider
}

// Repository reads and writes entities of the tabular store. Nothing is cached
// between calls; concurrent reads of the same table share one store request.
type Repository struct {
	store    repositories.TableStore
	tables   config.CatalogConfig
	fallback Dataset
	logger   *zap.Logger
	metrics  *metrics.Registry
	tracer   trace.Tracer
	group    singleflight.Group
}

// New constructs a catalog repository.
func New(deps Deps) (*Repository, error) {
	if deps.Store == nil {
		return nil, errors.New("catalog: table store is required")
	}

	var fallback Dataset
	switch strings.ToLower(strings.TrimSpace(deps.FallbackMode)) {
	case "", config.FallbackSample:
		fallback = deps.Fallback
		if fallback == nil {
			var err error
			fallback, err = DefaultDataset()
			if err != nil {
				return nil, err
			}
		}
	case config.FallbackEmpty:
	default:
		return nil, fmt.Errorf("catalog: unsupported fallback mode %q", deps.FallbackMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := deps.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	return &Repository{
		store:    deps.Store,
		tables:   deps.Tables,
		fallback: fallback,
		logger:   logger,
		metrics:  deps.Metrics,
		tracer:   provider.Tracer(tracerName),
	}, nil
}

// Table returns the store table backing entity.
func (r *Repository) Table(entity domain.Entity) string {
	if name := strings.TrimSpace(r.tables.Table(string(entity))); name != "" {
		return name
	}
	return string(entity)
}

// Fetch reads entity and maps its rows. Store failures are not returned as
// errors: the result is marked unavailable and may carry fallback records.
func (r *Repository) Fetch(ctx context.Context, entity domain.Entity) Result {
	rows, err := r.read(ctx, entity)
	if err != nil {
		res := Result{Status: StatusUnavailable, Err: err}
		if errors.Is(err, context.Canceled) {
			return res
		}
		if sample := r.fallback[entity]; len(sample) > 1 {
			res.Records = MapRows(SchemaFor(entity), sample)
			res.Fallback = true
			r.metrics.CatalogFallback(string(entity))
		}
		r.logger.Warn("catalog fetch failed",
			zap.String("entity", string(entity)),
			zap.String("table", r.Table(entity)),
			zap.Bool("fallback", res.Fallback),
			zap.Error(err),
		)
		return res
	}

	records := MapRows(SchemaFor(entity), rows)
	if len(records) == 0 {
		return Result{Status: StatusEmpty}
	}
	return Result{Records: records, Status: StatusOK}
}

// FetchStrict reads entity and returns store failures to the caller.
func (r *Repository) FetchStrict(ctx context.Context, entity domain.Entity) ([]Record, error) {
	rows, err := r.read(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch %s: %w", entity, err)
	}
	return MapRows(SchemaFor(entity), rows), nil
}

// read coalesces concurrent reads of one table. The shared read is detached from
// the caller's cancellation so one caller giving up does not fail the others;
// each caller still stops waiting when its own ctx is done.
func (r *Repository) read(ctx context.Context, entity domain.Entity) ([][]string, error) {
	table := r.Table(entity)
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(table, func() (any, error) {
		ctx, cancel := context.WithTimeout(shared, sharedReadTimeout)
		defer cancel()
		ctx, span := r.tracer.Start(ctx, "catalog.fetch", trace.WithAttributes(
			attribute.String("catalog.entity", string(entity)),
			attribute.String("catalog.table", table),
		))
		defer span.End()

		rows, err := r.store.Read(ctx, table)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "read failed")
			return nil, err
		}
		span.SetAttributes(attribute.Int("catalog.rows", len(rows)))
		return rows, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		rows, _ := res.Val.([][]string)
		return rows, nil
	}
}

// Append adds row at the end of entity's table.
func (r *Repository) Append(ctx context.Context, entity domain.Entity, row []string) error {
	table := r.Table(entity)
	ctx, span := r.tracer.Start(ctx, "catalog.append", trace.WithAttributes(
		attribute.String("catalog.entity", string(entity)),
		attribute.String("catalog.table", table),
	))
	defer span.End()

	if err := r.store.Append(ctx, table, row); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		r.logger.Warn("catalog append failed",
			zap.String("entity", string(entity)),
			zap.String("table", table),
			zap.Error(err),
		)
		return fmt.Errorf("catalog: append %s: %w", entity, err)
	}
	return nil
}

// ReplaceAll clears entity's table and writes the schema header followed by rows.
// Stores that implement this as clear-then-write may leave the table empty on failure.
func (r *Repository) ReplaceAll(ctx context.Context, entity domain.Entity, rows [][]string) error {
	schema := SchemaFor(entity)
	if len(schema.Columns) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	table := r.Table(entity)
	ctx, span := r.tracer.Start(ctx, "catalog.replace_all", trace.WithAttributes(
		attribute.String("catalog.entity", string(entity)),
		attribute.String("catalog.table", table),
		attribute.Int("catalog.rows", len(rows)),
	))
	defer span.End()

	all := make([][]string, 0, len(rows)+1)
	all = append(all, append([]string(nil), schema.Columns...))
	all = append(all, rows...)
	if err := r.store.ReplaceAll(ctx, table, all); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replace failed")
		r.logger.Warn("catalog replace failed",
			zap.String("entity", string(entity)),
			zap.String("table", table),
			zap.Error(err),
		)
		return fmt.Errorf("catalog: replace %s: %w", entity, err)
	}
	return nil
}

// UpdateOrderStatus rewrites the status cell of the order row carrying orderID.
func (r *Repository) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	orderID = strings.TrimSpace(orderID)
	rows, err := r.read(ctx, domain.EntityOrders)
	if err != nil {
		return fmt.Errorf("catalog: update status %s: %w", orderID, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	idCol, statusCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case ColOrderID:
			idCol = i
		case ColStatus:
			statusCol = i
		}
	}
	if idCol < 0 || statusCol < 0 {
		return fmt.Errorf("catalog: orders table lacks %s or %s column", ColOrderID, ColStatus)
	}

	for i := 1; i < len(rows); i++ {
		if idCol < len(rows[i]) && strings.TrimSpace(rows[i][idCol]) == orderID {
			if err := r.store.UpdateCell(ctx, r.Table(domain.EntityOrders), i, statusCol, string(status)); err != nil {
				return fmt.Errorf("catalog: update status %s: %w", orderID, err)
			}
			r.logger.Info("order status updated", zap.String("orderId", orderID), zap.String("status", string(status)))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
}
