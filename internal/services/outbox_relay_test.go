package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/repositories/memory"
)

func pendingEntry(createdAt time.Time, attempts int) domain.PendingCommit {
	return domain.PendingCommit{
		ID:       "01PENDING",
		OrderID:  "PD000031",
		OrderRow: []string{"PD000031", "2026-03-04 10:00:00", "1", "Juan Pérez", "3", "1240", "PENDIENTE", ""},
		LineRows: [][]string{
			{"PD000031_1", "PD000031", "1", "Oreo Original 117g", "1", "2", "450", "900"},
			{"PD000031_2", "PD000031", "2", "Pepitos Chocolate 100g", "1", "1", "340", "340"},
		},
		CreatedAt: createdAt,
		Attempts:  attempts,
	}
}

func newRelay(t *testing.T, deps OutboxRelayDeps) *OutboxRelay {
	t.Helper()
	relay, err := NewOutboxRelay(deps)
	if err != nil {
		t.Fatalf("NewOutboxRelay: %v", err)
	}
	return relay
}

func TestReplayAppendsOnlyMissingRows(t *testing.T) {
	ctx := context.Background()
	tables := newOrderTables()
	entry := pendingEntry(checkoutTime, 1)
	tables["Pedidos"] = append(tables["Pedidos"], entry.OrderRow)
	tables["DetallePedidos"] = append(tables["DetallePedidos"], entry.LineRows[0])
	store := memory.NewTableStore(tables)

	outbox := memory.NewOutboxStore()
	if err := outbox.Put(ctx, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	events := &recordingPublisher{}
	relay := newRelay(t, OutboxRelayDeps{
		Outbox:  outbox,
		Catalog: newCatalog(t, store),
		Events:  events,
		Clock:   func() time.Time { return checkoutTime },
	})

	report, err := relay.Replay(ctx)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if report != (ReplayReport{Recovered: 1}) {
		t.Fatalf("unexpected report %+v", report)
	}

	orders, _ := store.Read(ctx, "Pedidos")
	lines, _ := store.Read(ctx, "DetallePedidos")
	if len(orders) != 2 {
		t.Fatalf("order header should not be duplicated, got %d rows", len(orders))
	}
	if diff := cmp.Diff(entry.LineRows, lines[1:]); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if pending, _ := outbox.Pending(ctx, 10); len(pending) != 0 {
		t.Fatalf("entry should be removed")
	}
	if diff := cmp.Diff([]string{OrderEventRecovered}, events.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	report, err = relay.Replay(ctx)
	if err != nil || report != (ReplayReport{}) {
		t.Fatalf("second replay should be a no-op, got %+v, %v", report, err)
	}
}

func TestReplaySkipsFreshEntries(t *testing.T) {
	ctx := context.Background()
	outbox := memory.NewOutboxStore()
	_ = outbox.Put(ctx, pendingEntry(checkoutTime.Add(-30*time.Second), 0))

	store := memory.NewTableStore(newOrderTables())
	relay := newRelay(t, OutboxRelayDeps{
		Outbox:  outbox,
		Catalog: newCatalog(t, store),
		Clock:   func() time.Time { return checkoutTime },
	})
	report, err := relay.Replay(ctx)
	if err != nil || report != (ReplayReport{Skipped: 1}) {
		t.Fatalf("expected skip, got %+v, %v", report, err)
	}

	later := newRelay(t, OutboxRelayDeps{
		Outbox:  outbox,
		Catalog: newCatalog(t, store),
		Clock:   func() time.Time { return checkoutTime.Add(5 * time.Minute) },
	})
	report, err = later.Replay(ctx)
	if err != nil || report != (ReplayReport{Recovered: 1}) {
		t.Fatalf("expected recovery of stale entry, got %+v, %v", report, err)
	}
}

func TestReplayAbandonsAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	tables := newOrderTables()
	entry := pendingEntry(checkoutTime, 2)
	tables["Pedidos"] = append(tables["Pedidos"], entry.OrderRow)
	store := &flakyStore{TableStore: memory.NewTableStore(tables), failAfter: 0}

	outbox := memory.NewOutboxStore()
	_ = outbox.Put(ctx, entry)
	events := &recordingPublisher{}
	relay := newRelay(t, OutboxRelayDeps{
		Outbox:      outbox,
		Catalog:     newCatalog(t, store),
		Events:      events,
		MaxAttempts: 3,
		Clock:       func() time.Time { return checkoutTime },
	})

	report, err := relay.Replay(ctx)
	if err != nil || report != (ReplayReport{Abandoned: 1}) {
		t.Fatalf("expected abandonment, got %+v, %v", report, err)
	}
	orders, _ := store.Read(ctx, "Pedidos")
	if orders[1][6] != string(domain.OrderStatusCancelled) {
		t.Fatalf("abandoned order should be cancelled, got %q", orders[1][6])
	}
	if pending, _ := outbox.Pending(ctx, 10); len(pending) != 0 {
		t.Fatalf("abandoned entry should be removed")
	}
	if diff := cmp.Diff([]string{OrderEventAbandoned}, events.types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestReplayRetriesBelowMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{TableStore: memory.NewTableStore(newOrderTables()), failAfter: 1}
	outbox := memory.NewOutboxStore()
	_ = outbox.Put(ctx, pendingEntry(checkoutTime, 1))
	relay := newRelay(t, OutboxRelayDeps{
		Outbox:  outbox,
		Catalog: newCatalog(t, store),
		Clock:   func() time.Time { return checkoutTime },
	})

	report, err := relay.Replay(ctx)
	if err != nil || report != (ReplayReport{Retrying: 1}) {
		t.Fatalf("expected retry, got %+v, %v", report, err)
	}
	pending, _ := outbox.Pending(ctx, 10)
	if len(pending) != 1 || pending[0].Attempts != 2 || pending[0].LastError == "" {
		t.Fatalf("unexpected outbox state %+v", pending)
	}

	store.heal()
	report, err = relay.Replay(ctx)
	if err != nil || report != (ReplayReport{Recovered: 1}) {
		t.Fatalf("expected recovery, got %+v, %v", report, err)
	}
	lines, _ := store.Read(ctx, "DetallePedidos")
	orders, _ := store.Read(ctx, "Pedidos")
	if len(orders) != 2 || len(lines) != 3 {
		t.Fatalf("unexpected row counts orders=%d lines=%d", len(orders), len(lines))
	}
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	relay := newRelay(t, OutboxRelayDeps{
		Outbox:  memory.NewOutboxStore(),
		Catalog: newCatalog(t, memory.NewTableStore(newOrderTables())),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop")
	}

	if err := relay.Run(context.Background(), 0); err == nil {
		t.Fatalf("expected interval validation error")
	}
}
