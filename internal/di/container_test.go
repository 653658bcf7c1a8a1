package di

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/SIMPLIKARG/TESTING/internal/dialog"
	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/platform/config"
)

func memoryConfig() config.Config {
	return config.Config{
		Environment: "test",
		Store:       config.StoreConfig{Backend: config.BackendMemory},
		Counter:     config.CounterConfig{Backend: config.BackendStore, Key: "pedidos"},
		Catalog: config.CatalogConfig{
			Fallback:   config.FallbackSample,
			Clients:    "Clientes",
			Categories: "Categorias",
			Products:   "Productos",
			Orders:     "Pedidos",
			OrderLines: "DetallePedidos",
		},
		Limits: config.LimitsConfig{
			ProductPageSize: 8,
			CartPageSize:    5,
			ClientPageSize:  10,
			MaxQuantity:     999,
			NoteMaxLength:   500,
			SearchMinLength: 2,
		},
		Sessions: config.SessionConfig{TTL: time.Hour},
		Outbox:   config.OutboxConfig{ReplayInterval: time.Minute},
	}
}

func TestNewContainerMemoryBackendTakesAnOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	c, err := NewContainer(ctx, memoryConfig(), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	steps := []dialog.Event{
		{UserID: 1, Kind: dialog.KindCommand, Payload: "/start"},
		{UserID: 1, Kind: dialog.KindButton, Payload: "new_order"},
		{UserID: 1, Kind: dialog.KindButton, Payload: "client|2"},
		{UserID: 1, Kind: dialog.KindButton, Payload: "qty|7|2"},
		{UserID: 1, Kind: dialog.KindButton, Payload: "checkout"},
		{UserID: 1, Kind: dialog.KindButton, Payload: "note_no"},
	}
	var last dialog.Directive
	for _, ev := range steps {
		if last, err = c.Engine.Handle(ctx, ev); err != nil {
			t.Fatalf("Handle(%+v): %v", ev, err)
		}
	}
	if !strings.Contains(last.Text, "PD000001") {
		t.Fatalf("confirmation = %q", last.Text)
	}

	orders := c.Catalog.Orders(ctx)
	if len(orders.Items) != 1 || orders.Items[0].ID != "PD000001" || orders.Items[0].Status != domain.OrderStatusPending {
		t.Fatalf("orders = %+v", orders.Items)
	}
	if !orders.Items[0].CreatedAt.Equal(now) {
		t.Fatalf("created at = %v, want %v", orders.Items[0].CreatedAt, now)
	}

	pending, err := c.Outbox.Pending(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("outbox pending = %v, %v", pending, err)
	}

	report, err := c.Health.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("health = %+v", report)
	}
}

func TestNewContainerRejectsUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Backend = "excel"
	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestNewContainerUsesDurableOutbox(t *testing.T) {
	cfg := memoryConfig()
	cfg.Outbox.Dir = t.TempDir()
	c, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if _, err := c.Outbox.Pending(context.Background(), 1); err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
