package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SIMPLIKARG/TESTING/internal/catalog"
	"github.com/SIMPLIKARG/TESTING/internal/dialog"
	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/platform/config"
	pfirestore "github.com/SIMPLIKARG/TESTING/internal/platform/firestore"
	"github.com/SIMPLIKARG/TESTING/internal/platform/jobs"
	"github.com/SIMPLIKARG/TESTING/internal/platform/metrics"
	"github.com/SIMPLIKARG/TESTING/internal/platform/observability"
	psheets "github.com/SIMPLIKARG/TESTING/internal/platform/sheets"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
	firestoreRepo "github.com/SIMPLIKARG/TESTING/internal/repositories/firestore"
	"github.com/SIMPLIKARG/TESTING/internal/repositories/memory"
	pebbleRepo "github.com/SIMPLIKARG/TESTING/internal/repositories/pebble"
	sheetsRepo "github.com/SIMPLIKARG/TESTING/internal/repositories/sheets"
	sqlRepo "github.com/SIMPLIKARG/TESTING/internal/repositories/sql"
	"github.com/SIMPLIKARG/TESTING/internal/services"
)

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config   config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Registry
	Tables   repositories.TableStore
	Catalog  *catalog.Repository
	Sessions *memory.SessionStore
	Outbox   repositories.OutboxStore
	Sequence *services.SequenceGenerator
	Orders   *services.OrderService
	Relay    *services.OutboxRelay
	Engine   *dialog.Engine
	Health   repositories.HealthRepository

	closers []func(context.Context) error
}

// Option customises container construction.
type Option func(*options)

type options struct {
	logger         *zap.Logger
	metrics        *metrics.Registry
	clock          func() time.Time
	tables         repositories.TableStore
	tracerProvider trace.TracerProvider
}

// WithLogger sets the root logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics registry; a fresh one is created otherwise.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *options) { o.metrics = reg }
}

// WithClock injects a clock shared by every service.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithTableStore replaces the configured tabular backend, typically in tests.
func WithTableStore(store repositories.TableStore) Option {
	return func(o *options) { o.tables = store }
}

// WithTracerProvider sets the tracer provider used around store calls.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// NewContainer constructs the runtime dependencies described by cfg.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (_ *Container, err error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewRegistry()
	}

	c := &Container{Config: cfg, Logger: o.logger, Metrics: o.metrics}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	var db *gorm.DB
	c.Tables = o.tables
	if c.Tables == nil {
		c.Tables, db, err = c.buildTables(ctx)
		if err != nil {
			return nil, err
		}
	}

	var fallback catalog.Dataset
	if cfg.Catalog.FallbackFile != "" {
		fallback, err = catalog.LoadDatasetFile(cfg.Catalog.FallbackFile)
		if err != nil {
			return nil, fmt.Errorf("load fallback dataset: %w", err)
		}
	}
	c.Catalog, err = catalog.New(catalog.Deps{
		Store:          c.Tables,
		Tables:         cfg.Catalog,
		FallbackMode:   cfg.Catalog.Fallback,
		Fallback:       fallback,
		Logger:         observability.Named(o.logger, "catalog"),
		Metrics:        o.metrics,
		TracerProvider: o.tracerProvider,
	})
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	if cfg.Store.Backend == config.BackendMemory && o.tables == nil {
		if err := seedMemory(ctx, c.Catalog, fallback); err != nil {
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
	}

	counter, err := c.buildCounter(ctx, db)
	if err != nil {
		return nil, err
	}
	c.Sequence, err = services.NewSequenceGenerator(services.SequenceGeneratorDeps{
		Counter: counter,
		Key:     cfg.Counter.Key,
		Clock:   o.clock,
		Logger:  observability.Named(o.logger, "sequence"),
		Metrics: o.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build sequence generator: %w", err)
	}

	c.Outbox, err = c.buildOutbox()
	if err != nil {
		return nil, err
	}

	events, err := c.buildPublisher(ctx)
	if err != nil {
		return nil, err
	}

	c.Orders, err = services.NewOrderService(services.OrderServiceDeps{
		Catalog:       c.Catalog,
		Sequence:      c.Sequence,
		Outbox:        c.Outbox,
		Events:        events,
		NoteMaxLength: cfg.Limits.NoteMaxLength,
		Clock:         o.clock,
		Logger:        observability.Named(o.logger, "orders"),
		Metrics:       o.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build order service: %w", err)
	}

	c.Relay, err = services.NewOutboxRelay(services.OutboxRelayDeps{
		Outbox:  c.Outbox,
		Catalog: c.Catalog,
		Events:  events,
		Clock:   o.clock,
		Logger:  observability.Named(o.logger, "outbox"),
		Metrics: o.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build outbox relay: %w", err)
	}

	c.Sessions = memory.NewSessionStore(cfg.Sessions.TTL, memory.WithSessionClock(o.clock))
	c.Engine, err = dialog.New(dialog.Deps{
		Sessions: c.Sessions,
		Catalog:  c.Catalog,
		Orders:   c.Orders,
		Sequence: c.Sequence,
		Cart:     services.NewCartManager(cfg.Limits.MaxQuantity),
		Limits:   cfg.Limits,
		Clock:    o.clock,
		Logger:   o.logger,
		Metrics:  o.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build dialog engine: %w", err)
	}

	c.Health, err = repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "tables",
			Check: func(ctx context.Context) error {
				_, err := c.Tables.Read(ctx, cfg.Catalog.Table(string(domain.EntityCategories)))
				return err
			},
		},
		{
			Name: "outbox",
			Check: func(ctx context.Context) error {
				_, err := c.Outbox.Pending(ctx, 1)
				return err
			},
		},
	}, repositories.WithDependencyClock(o.clock))
	if err != nil {
		return nil, fmt.Errorf("build health repository: %w", err)
	}

	return c, nil
}

// Close releases clients in reverse order of creation.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) onClose(fn func(context.Context) error) {
	c.closers = append(c.closers, fn)
}

func (c *Container) buildTables(ctx context.Context) (repositories.TableStore, *gorm.DB, error) {
	cfg := c.Config
	switch cfg.Store.Backend {
	case config.BackendSheets:
		svc, err := psheets.NewService(ctx, cfg.Sheets)
		if err != nil {
			return nil, nil, fmt.Errorf("build sheets client: %w", err)
		}
		store, err := sheetsRepo.NewTableStore(svc, cfg.Sheets.SpreadsheetID)
		if err != nil {
			return nil, nil, fmt.Errorf("build sheets table store: %w", err)
		}
		return store, nil, nil
	case config.BackendSQL:
		db, err := sqlRepo.Open(cfg.SQL.DSN, observability.Named(c.Logger, "sql"))
		if err != nil {
			return nil, nil, fmt.Errorf("open sql store: %w", err)
		}
		c.onClose(func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		store, err := sqlRepo.NewTableStore(db)
		if err != nil {
			return nil, nil, fmt.Errorf("build sql table store: %w", err)
		}
		return store, db, nil
	case config.BackendMemory:
		return memory.NewTableStore(nil), nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
}

func (c *Container) buildCounter(ctx context.Context, db *gorm.DB) (repositories.CounterStore, error) {
	cfg := c.Config
	switch cfg.Counter.Backend {
	case config.BackendFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		c.onClose(provider.Close)
		if _, err := provider.Client(ctx); err != nil {
			return nil, fmt.Errorf("build firestore client: %w", err)
		}
		return firestoreRepo.NewCounterRepository(provider)
	case config.BackendMemory:
		return memory.NewCounterStore(), nil
	case config.BackendStore:
		switch {
		case db != nil:
			return sqlRepo.NewCounterStore(db)
		case cfg.Store.Backend == config.BackendSheets:
			return sheetsRepo.NewCounterStore(c.Tables, cfg.Counter.Sheet), nil
		}
		return memory.NewCounterStore(), nil
	}
	return nil, fmt.Errorf("unsupported counter backend %q", cfg.Counter.Backend)
}

// buildOutbox opens the durable outbox, or an in-process one when no directory is configured.
func (c *Container) buildOutbox() (repositories.OutboxStore, error) {
	if c.Config.Outbox.Dir == "" {
		c.Logger.Warn("outbox directory not configured; pending commits will not survive a restart")
		return memory.NewOutboxStore(), nil
	}
	store, err := pebbleRepo.NewOutboxStore(c.Config.Outbox.Dir)
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	c.onClose(func(context.Context) error { return store.Close() })
	return store, nil
}

func (c *Container) buildPublisher(ctx context.Context) (services.OrderEventPublisher, error) {
	cfg := c.Config.PubSub
	if cfg.Topic == "" {
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("build pubsub client: %w", err)
	}
	topic := client.Topic(cfg.Topic)
	c.onClose(func(context.Context) error {
		topic.Stop()
		return client.Close()
	})
	publisher, err := jobs.NewPubSubOrderPublisher(topic)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

// seedMemory loads master data and empty order tables into a fresh in-memory store.
func seedMemory(ctx context.Context, repo *catalog.Repository, ds catalog.Dataset) error {
	if ds == nil {
		var err error
		if ds, err = catalog.DefaultDataset(); err != nil {
			return err
		}
	}
	if err := repo.Seed(ctx, ds); err != nil {
		return err
	}
	for _, entity := range []domain.Entity{domain.EntityOrders, domain.EntityOrderLines} {
		if err := repo.ReplaceAll(ctx, entity, nil); err != nil {
			return err
		}
	}
	return nil
}
