package catalog

import (
	"context"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

// Seed replaces the master data tables (clients, categories, products) with the
// contents of ds. Order tables are left untouched.
func (r *Repository) Seed(ctx context.Context, ds Dataset) error {
	clients := MapRows(SchemaFor(domain.EntityClients), ds[domain.EntityClients])
	rows := make([][]string, 0, len(clients))
	for _, rec := range clients {
		rows = append(rows, ClientRow(DecodeClient(rec)))
	}
	if err := r.ReplaceAll(ctx, domain.EntityClients, rows); err != nil {
		return err
	}

	categories := MapRows(SchemaFor(domain.EntityCategories), ds[domain.EntityCategories])
	rows = make([][]string, 0, len(categories))
	for _, rec := range categories {
		rows = append(rows, CategoryRow(DecodeCategory(rec)))
	}
	if err := r.ReplaceAll(ctx, domain.EntityCategories, rows); err != nil {
		return err
	}

	products := MapRows(SchemaFor(domain.EntityProducts), ds[domain.EntityProducts])
	rows = make([][]string, 0, len(products))
	for _, rec := range products {
		rows = append(rows, ProductRow(DecodeProduct(rec)))
	}
	return r.ReplaceAll(ctx, domain.EntityProducts, rows)
}
