package services

import (
	"context"
	"time"

	"github.com/SIMPLIKARG/TESTING/internal/catalog"
	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

// CatalogWriter is the part of the catalog repository used to persist orders.
type CatalogWriter interface {
	Append(ctx context.Context, entity domain.Entity, row []string) error
	FetchStrict(ctx context.Context, entity domain.Entity) ([]catalog.Record, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

// Sequencer hands out order identifiers.
type Sequencer interface {
	Next(ctx context.Context) string
}

// Order event types.
const (
	OrderEventCommitted    = "order.committed"
	OrderEventCommitFailed = "order.commit_failed"
	OrderEventRecovered    = "order.recovered"
	OrderEventAbandoned    = "order.abandoned"
)

// OrderEvent describes a change in an order's persistence state.
type OrderEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	ClientID   int64     `json:"clientId,omitempty"`
	ClientName string    `json:"clientName,omitempty"`
	ItemCount  int       `json:"itemCount,omitempty"`
	Total      string    `json:"total,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// OrderEventPublisher delivers order events to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error)
}
