package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/SIMPLIKARG/TESTING/internal/catalog"
	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/platform/metrics"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

const (
	defaultRelayMaxAttempts = 5
	defaultRelayMinAge      = 2 * time.Minute
	defaultRelayBatchSize   = 50
)

// OutboxRelayDeps bundles collaborators required to construct an outbox relay.
type OutboxRelayDeps struct {
	Outbox      repositories.OutboxStore
	Catalog     CatalogWriter
	Events      OrderEventPublisher
	MaxAttempts int
	// MinAge protects commits still in flight: entries that never failed are
	// only replayed once they are older than MinAge.
	MinAge    time.Duration
	BatchSize int
	Clock     func() time.Time
	Logger    *zap.Logger
	Metrics   *metrics.Registry
}

// OutboxRelay completes order commits recorded in the outbox.
type OutboxRelay struct {
	outbox      repositories.OutboxStore
	catalog     CatalogWriter
	events      OrderEventPublisher
	maxAttempts int
	minAge      time.Duration
	batchSize   int
	clock       func() time.Time
	logger      *zap.Logger
	metrics     *metrics.Registry
}

// ReplayReport summarises one replay pass.
type ReplayReport struct {
	Recovered int
	Retrying  int
	Abandoned int
	Skipped   int
}

// NewOutboxRelay constructs a relay.
func NewOutboxRelay(deps OutboxRelayDeps) (*OutboxRelay, error) {
	if deps.Outbox == nil {
		return nil, errors.New("outbox relay: outbox store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("outbox relay: catalog is required")
	}
	maxAttempts := deps.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultRelayMaxAttempts
	}
	minAge := deps.MinAge
	if minAge < 0 {
		minAge = 0
	} else if minAge == 0 {
		minAge = defaultRelayMinAge
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = defaultRelayBatchSize
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxRelay{
		outbox:      deps.Outbox,
		catalog:     deps.Catalog,
		events:      deps.Events,
		maxAttempts: maxAttempts,
		minAge:      minAge,
		batchSize:   batch,
		clock:       clock,
		logger:      logger,
		metrics:     deps.Metrics,
	}, nil
}

// Run replays the outbox every interval until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("outbox relay: interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := r.Replay(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Warn("outbox replay failed", zap.Error(err))
				continue
			}
			if report != (ReplayReport{}) {
				r.logger.Info("outbox replay",
					zap.Int("recovered", report.Recovered),
					zap.Int("retrying", report.Retrying),
					zap.Int("abandoned", report.Abandoned),
					zap.Int("skipped", report.Skipped),
				)
			}
		}
	}
}

// Replay writes the missing rows of every eligible pending commit. Rows already
// present in the store, matched by order id and line id, are not written again,
// so replaying is idempotent.
func (r *OutboxRelay) Replay(ctx context.Context) (ReplayReport, error) {
	var report ReplayReport
	entries, err := r.outbox.Pending(ctx, r.batchSize)
	if err != nil {
		return report, fmt.Errorf("outbox relay: list pending: %w", err)
	}
	now := r.clock()
	var due []domain.PendingCommit
	for _, entry := range entries {
		if entry.Attempts == 0 && now.Sub(entry.CreatedAt) < r.minAge {
			report.Skipped++
			continue
		}
		due = append(due, entry)
	}
	if len(due) == 0 {
		return report, nil
	}

	orders, err := r.catalog.FetchStrict(ctx, domain.EntityOrders)
	if err != nil {
		return report, fmt.Errorf("outbox relay: %w", err)
	}
	lines, err := r.catalog.FetchStrict(ctx, domain.EntityOrderLines)
	if err != nil {
		return report, fmt.Errorf("outbox relay: %w", err)
	}
	present := make(map[string]struct{}, len(orders)+len(lines))
	for _, rec := range orders {
		present["o:"+rec.Text(catalog.ColOrderID)] = struct{}{}
	}
	for _, rec := range lines {
		present["l:"+rec.Text(catalog.ColLineID)] = struct{}{}
	}

	for _, entry := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		switch r.replayEntry(ctx, entry, present) {
		case replayRecovered:
			report.Recovered++
		case replayRetrying:
			report.Retrying++
		case replayAbandoned:
			report.Abandoned++
		}
	}
	return report, nil
}

type replayOutcome int

const (
	replayRecovered replayOutcome = iota
	replayRetrying
	replayAbandoned
)

func (r *OutboxRelay) replayEntry(ctx context.Context, entry domain.PendingCommit, present map[string]struct{}) replayOutcome {
	logger := r.logger.With(zap.String("orderId", entry.OrderID), zap.String("entryId", entry.ID))

	headerWritten := hasRow(present, "o:", entry.OrderRow)
	err := func() error {
		if !headerWritten {
			if err := r.catalog.Append(ctx, domain.EntityOrders, entry.OrderRow); err != nil {
				return err
			}
			headerWritten = true
			markRow(present, "o:", entry.OrderRow)
		}
		for _, row := range entry.LineRows {
			if hasRow(present, "l:", row) {
				continue
			}
			if err := r.catalog.Append(ctx, domain.EntityOrderLines, row); err != nil {
				return err
			}
			markRow(present, "l:", row)
		}
		return nil
	}()

	if err == nil {
		if delErr := r.outbox.Delete(ctx, entry.ID); delErr != nil {
			logger.Warn("outbox cleanup failed", zap.Error(delErr))
		}
		r.metrics.CommitRecovered()
		logger.Info("order commit recovered", zap.Int("attempts", entry.Attempts))
		r.publish(ctx, OrderEventRecovered, entry, nil)
		return replayRecovered
	}

	entry.Attempts++
	entry.LastError = err.Error()
	if entry.Attempts < r.maxAttempts {
		if putErr := r.outbox.Put(ctx, entry); putErr != nil {
			logger.Warn("outbox update failed", zap.Error(putErr))
		}
		logger.Warn("order commit retry failed", zap.Int("attempts", entry.Attempts), zap.Error(err))
		return replayRetrying
	}

	if headerWritten {
		if statusErr := r.catalog.UpdateOrderStatus(ctx, entry.OrderID, domain.OrderStatusCancelled); statusErr != nil {
			logger.Error("cancel abandoned order failed", zap.Error(statusErr))
		}
	}
	if delErr := r.outbox.Delete(ctx, entry.ID); delErr != nil {
		logger.Warn("outbox cleanup failed", zap.Error(delErr))
	}
	r.metrics.CommitAbandoned()
	logger.Error("order commit abandoned", zap.Int("attempts", entry.Attempts), zap.Error(err))
	r.publish(ctx, OrderEventAbandoned, entry, err)
	return replayAbandoned
}

func hasRow(present map[string]struct{}, prefix string, row []string) bool {
	if len(row) == 0 {
		return true
	}
	_, ok := present[prefix+strings.TrimSpace(row[0])]
	return ok
}

func markRow(present map[string]struct{}, prefix string, row []string) {
	if len(row) > 0 {
		present[prefix+strings.TrimSpace(row[0])] = struct{}{}
	}
}

func (r *OutboxRelay) publish(ctx context.Context, eventType string, entry domain.PendingCommit, cause error) {
	if r.events == nil {
		return
	}
	order := catalog.ParseOrderRow(entry.OrderRow)
	event := OrderEvent{
		ID:         ulid.Make().String(),
		Type:       eventType,
		OrderID:    entry.OrderID,
		ClientID:   order.ClientID,
		ClientName: order.ClientName,
		ItemCount:  order.ItemCount,
		Total:      order.Total.String(),
		OccurredAt: r.clock().UTC(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if _, err := r.events.PublishOrderEvent(ctx, event); err != nil {
		r.logger.Warn("order event publish failed", zap.String("type", eventType), zap.String("orderId", entry.OrderID), zap.Error(err))
	}
}
