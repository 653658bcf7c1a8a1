package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/SIMPLIKARG/TESTING/internal/catalog"
	"github.com/SIMPLIKARG/TESTING/internal/platform/config"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
	"github.com/SIMPLIKARG/TESTING/internal/repositories/memory"
)

var errStoreDown = &repositories.StoreError{Op: "append", Err: errors.New("503 backend error"), Unavailable: true}

// flakyStore fails appends once failAfter appends have succeeded (negative never fails).
type flakyStore struct {
	*memory.TableStore
	mu        sync.Mutex
	failAfter int
	appends   int
}

func (s *flakyStore) Append(ctx context.Context, table string, row []string) error {
	s.mu.Lock()
	if s.failAfter >= 0 && s.appends >= s.failAfter {
		s.mu.Unlock()
		return errStoreDown
	}
	s.appends++
	s.mu.Unlock()
	return s.TableStore.Append(ctx, table, row)
}

func (s *flakyStore) heal() {
	s.mu.Lock()
	s.failAfter = -1
	s.mu.Unlock()
}

func newOrderTables() map[string][][]string {
	return map[string][][]string{
		"Pedidos":        {catalog.SchemaFor("Orders").Columns},
		"DetallePedidos": {catalog.SchemaFor("OrderLines").Columns},
	}
}

func newCatalog(t *testing.T, store repositories.TableStore) *catalog.Repository {
	t.Helper()
	repo, err := catalog.New(catalog.Deps{
		Store: store,
		Tables: config.CatalogConfig{
			Clients:    "Clientes",
			Categories: "Categorias",
			Products:   "Productos",
			Orders:     "Pedidos",
			OrderLines: "DetallePedidos",
		},
		FallbackMode: config.FallbackEmpty,
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return repo
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event OrderEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return event.ID, nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
