package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/SIMPLIKARG/TESTING/internal/catalog"
	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/platform/metrics"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

const defaultNoteMaxLength = 500

var (
	// ErrInvalidCheckoutState is returned when the session has no client or an empty cart.
	ErrInvalidCheckoutState = errors.New("checkout: invalid state")
	// ErrNoteTooLong is returned when the order note exceeds the character limit.
	ErrNoteTooLong = errors.New("checkout: note too long")
	// ErrNoteMarkup is returned when the note contains text the markup policy would rewrite.
	ErrNoteMarkup = errors.New("checkout: note contains markup")
)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// PartialCommitError reports a checkout whose rows were not all written. When
// Queued is true the remaining rows are held in the outbox and will be retried.
type PartialCommitError struct {
	OrderID     string
	RowsWritten int
	RowsTotal   int
	Queued      bool
	Err         error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("checkout: order %s partially written (%d/%d rows): %v", e.OrderID, e.RowsWritten, e.RowsTotal, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// OrderServiceDeps bundles collaborators required to construct an order service.
type OrderServiceDeps struct {
	Catalog       CatalogWriter
	Sequence      Sequencer
	Outbox        repositories.OutboxStore
	Events        OrderEventPublisher
	NoteMaxLength int
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        *zap.Logger
	Metrics       *metrics.Registry
}

// OrderService turns a session cart into persisted order rows.
type OrderService struct {
	catalog  CatalogWriter
	sequence Sequencer
	outbox   repositories.OutboxStore
	events   OrderEventPublisher
	noteMax  int
	policy   *bluemonday.Policy
	clock    func() time.Time
	newID    func() string
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// NewOrderService constructs an order service.
func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("order service: catalog is required")
	}
	noteMax := deps.NoteMaxLength
	if noteMax <= 0 {
		noteMax = defaultNoteMaxLength
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		catalog:  deps.Catalog,
		sequence: deps.Sequence,
		outbox:   deps.Outbox,
		events:   deps.Events,
		noteMax:  noteMax,
		policy:   bluemonday.StrictPolicy(),
		clock:    clock,
		newID:    newID,
		logger:   logger,
		metrics:  deps.Metrics,
	}, nil
}

// NoteMaxLength returns the note limit in characters.
func (s *OrderService) NoteMaxLength() int { return s.noteMax }

// NormalizeNote trims the note and returns it as written. A note the strict
// markup policy would alter (tags, entities) is rejected with ErrNoteMarkup
// instead of being rewritten. An empty note is allowed.
func (s *OrderService) NormalizeNote(note string) (string, error) {
	trimmed := strings.TrimSpace(lineBreaks.Replace(note))
	if s.policy.Sanitize(trimmed) != html.EscapeString(trimmed) {
		return "", ErrNoteMarkup
	}
	if n := utf8.RuneCountInString(trimmed); n > s.noteMax {
		return "", fmt.Errorf("%w: %d characters, limit %d", ErrNoteTooLong, n, s.noteMax)
	}
	return trimmed, nil
}

// BuildOrder assembles the order header and lines for the session cart.
func BuildOrder(session domain.Session, note string, now time.Time) (domain.Order, []domain.OrderLine) {
	count, total := Totals(session.Cart)
	order := domain.Order{
		ID:         session.OrderID,
		CreatedAt:  now,
		ClientID:   session.Client.ID,
		ClientName: session.Client.Name,
		ItemCount:  count,
		Total:      total,
		Status:     domain.OrderStatusPending,
		Note:       note,
	}
	lines := make([]domain.OrderLine, len(session.Cart.Items))
	for i, item := range session.Cart.Items {
		lines[i] = domain.OrderLine{
			ID:          fmt.Sprintf("%s_%d", order.ID, i+1),
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			CategoryID:  item.CategoryID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		}
	}
	return order, lines
}

// Checkout writes the session's order and resets the session. Validation
// failures leave the session untouched. When a write fails after the commit was
// recorded in the outbox, the session is reset as on success and the returned
// *PartialCommitError has Queued set; otherwise the session is kept for a retry.
func (s *OrderService) Checkout(ctx context.Context, session *domain.Session, note string) (domain.Order, error) {
	if session == nil || session.Client == nil || session.Cart.Empty() {
		return domain.Order{}, ErrInvalidCheckoutState
	}
	note, err := s.NormalizeNote(note)
	if err != nil {
		return domain.Order{}, err
	}
	if session.OrderID == "" {
		if s.sequence == nil {
			return domain.Order{}, fmt.Errorf("%w: no order id assigned", ErrInvalidCheckoutState)
		}
		session.OrderID = s.sequence.Next(ctx)
	}

	started := s.clock()
	order, lines := BuildOrder(*session, note, started.UTC())
	entry := domain.PendingCommit{
		ID:        s.newID(),
		OrderID:   order.ID,
		OrderRow:  catalog.OrderRow(order),
		LineRows:  make([][]string, len(lines)),
		CreatedAt: order.CreatedAt,
	}
	for i, line := range lines {
		entry.LineRows[i] = catalog.OrderLineRow(line)
	}
	logger := s.logger.With(zap.String("orderId", order.ID), zap.Int64("userId", session.UserID))

	queued := false
	if s.outbox != nil {
		if err := s.outbox.Put(ctx, entry); err != nil {
			logger.Warn("outbox unavailable, committing without recovery record", zap.Error(err))
		} else {
			queued = true
		}
	}

	written, err := s.writeRows(ctx, entry)
	if err != nil {
		return order, s.handlePartial(ctx, session, order, entry, written, queued, err, logger)
	}

	if queued {
		if err := s.outbox.Delete(ctx, entry.ID); err != nil {
			logger.Warn("outbox cleanup failed", zap.String("entryId", entry.ID), zap.Error(err))
		}
	}
	s.metrics.CommitSucceeded(s.clock().Sub(started).Seconds())
	logger.Info("order committed", zap.Int("items", order.ItemCount), zap.String("total", order.Total.String()))
	s.publish(ctx, OrderEventCommitted, order, nil)

	session.ResetOrder()
	return order, nil
}

func (s *OrderService) writeRows(ctx context.Context, entry domain.PendingCommit) (int, error) {
	if err := s.catalog.Append(ctx, domain.EntityOrders, entry.OrderRow); err != nil {
		return 0, err
	}
	for i, row := range entry.LineRows {
		if err := s.catalog.Append(ctx, domain.EntityOrderLines, row); err != nil {
			return i + 1, err
		}
	}
	return len(entry.LineRows) + 1, nil
}

func (s *OrderService) handlePartial(ctx context.Context, session *domain.Session, order domain.Order, entry domain.PendingCommit, written int, queued bool, cause error, logger *zap.Logger) error {
	partial := &PartialCommitError{
		OrderID:     order.ID,
		RowsWritten: written,
		RowsTotal:   len(entry.LineRows) + 1,
		Queued:      queued,
		Err:         cause,
	}
	s.metrics.CommitPartial()
	logger.Error("order commit incomplete",
		zap.Int("rowsWritten", written),
		zap.Int("rowsTotal", partial.RowsTotal),
		zap.Bool("queued", queued),
		zap.Error(cause),
	)

	if queued {
		entry.Attempts = 1
		entry.LastError = cause.Error()
		if err := s.outbox.Put(ctx, entry); err != nil {
			logger.Warn("outbox update failed", zap.String("entryId", entry.ID), zap.Error(err))
		}
		session.ResetOrder()
	}
	s.publish(ctx, OrderEventCommitFailed, order, cause)
	return partial
}

func (s *OrderService) publish(ctx context.Context, eventType string, order domain.Order, cause error) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		ID:         s.newID(),
		Type:       eventType,
		OrderID:    order.ID,
		ClientID:   order.ClientID,
		ClientName: order.ClientName,
		ItemCount:  order.ItemCount,
		Total:      order.Total.String(),
		OccurredAt: s.clock().UTC(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn("order event publish failed", zap.String("type", eventType), zap.String("orderId", order.ID), zap.Error(err))
	}
}
