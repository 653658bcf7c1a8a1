package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SIMPLIKARG/TESTING/internal/platform/metrics"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

const (
	orderIDPrefix     = "PD"
	defaultCounterKey = "pedidos"
)

// SequenceGeneratorDeps bundles collaborators required to construct a sequence generator.
type SequenceGeneratorDeps struct {
	Counter repositories.CounterStore
	Key     string
	Clock   func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// SequenceGenerator produces order identifiers from a shared counter. Uniqueness
// depends on the counter store: Firestore and SQL increment atomically, the
// Sheets store only serialises increments within one process.
type SequenceGenerator struct {
	counter repositories.CounterStore
	key     string
	clock   func() time.Time
	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewSequenceGenerator constructs a generator on top of the counter store.
func NewSequenceGenerator(deps SequenceGeneratorDeps) (*SequenceGenerator, error) {
	if deps.Counter == nil {
		return nil, errors.New("sequence generator: counter store is required")
	}
	key := strings.TrimSpace(deps.Key)
	if key == "" {
		key = defaultCounterKey
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequenceGenerator{
		counter: deps.Counter,
		key:     key,
		clock:   clock,
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

// Next returns the next order id. Counter failures fall back to a timestamp
// derived id, which is not guaranteed unique.
func (g *SequenceGenerator) Next(ctx context.Context) string {
	id, err := g.NextStrict(ctx)
	if err == nil {
		return id
	}
	id = FallbackOrderID(g.clock())
	g.metrics.SequenceFallback()
	fields := []zap.Field{zap.String("counter", g.key), zap.String("orderId", id), zap.Error(err)}
	if repositories.IsCounterCorrupt(err) {
		g.logger.Error("order counter holds an unreadable value, using timestamp id", fields...)
		return id
	}
	g.logger.Warn("order sequence unavailable, using timestamp id", fields...)
	return id
}

// NextStrict returns the next order id or the counter error.
func (g *SequenceGenerator) NextStrict(ctx context.Context) (string, error) {
	value, err := g.counter.Increment(ctx, g.key)
	if err != nil {
		return "", fmt.Errorf("sequence generator: increment %s: %w", g.key, err)
	}
	return FormatOrderID(value), nil
}

// FormatOrderID renders a sequence value as "PD" followed by at least six digits.
func FormatOrderID(value int64) string {
	return fmt.Sprintf("%s%06d", orderIDPrefix, value)
}

// FallbackOrderID derives an id from the last six digits of the Unix millisecond clock.
func FallbackOrderID(now time.Time) string {
	return FormatOrderID(now.UnixMilli() % 1_000_000)
}
