package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

func sampleProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, CategoryID: 1, Name: "Oreo Original 117g", Active: true},
		{ID: 2, CategoryID: 1, Name: "Pepitos Chocolate 100g", Active: true},
		{ID: 7, CategoryID: 2, Name: "Coca Cola 500ml", Active: true},
		{ID: 12, CategoryID: 2, Name: "Agua con Gas 500ml", Active: false},
		{ID: 17, CategoryID: 3, Name: "Dulce de Leche 400g", Active: true},
	}
}

func productIDs(products []domain.Product) []int64 {
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestSearchProducts(t *testing.T) {
	cases := []struct {
		name     string
		term     string
		category int64
		want     []int64
	}{
		{name: "case insensitive name", term: "OREO", want: []int64{1}},
		{name: "shared substring", term: "500ml", want: []int64{7}},
		{name: "inactive excluded", term: "agua", want: []int64{}},
		{name: "id or name substring", term: "7", want: []int64{1, 7, 17}},
		{name: "category scope", term: "1", category: 1, want: []int64{1, 2}},
		{name: "blank term", term: "  ", want: []int64{}},
		{name: "trimmed term", term: " leche ", want: []int64{17}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := productIDs(SearchProducts(sampleProducts(), tc.term, tc.category))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestActiveInCategoryAndFind(t *testing.T) {
	if diff := cmp.Diff([]int64{7}, productIDs(ActiveInCategory(sampleProducts(), 2))); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if _, ok := FindProduct(sampleProducts(), 99); ok {
		t.Fatalf("unexpected product")
	}
	if p, ok := FindProduct(sampleProducts(), 12); !ok || p.Active {
		t.Fatalf("FindProduct should return inactive products too")
	}
}

func TestClientsByLocality(t *testing.T) {
	clients := []domain.Client{
		{ID: 1, Name: "Juan Pérez", Locality: "Centro"},
		{ID: 2, Name: "María González", Locality: "Norte"},
		{ID: 3, Name: "Carlos Rodríguez", Locality: "Centro"},
		{ID: 4, Name: "Ana Martínez", Locality: ""},
	}
	groups := GroupByLocality(clients)
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	if diff := cmp.Diff([]string{"Centro", "Norte", domain.DefaultLocality}, names); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
	if len(groups[0].Clients) != 2 || groups[0].Clients[1].ID != 3 {
		t.Fatalf("unexpected Centro clients %+v", groups[0].Clients)
	}
	if got := ClientsInLocality(clients, domain.DefaultLocality); len(got) != 1 || got[0].ID != 4 {
		t.Fatalf("unexpected default locality clients %+v", got)
	}

	matches := SearchClients(clients, "GONZ")
	if len(matches) != 1 || matches[0].ID != 2 {
		t.Fatalf("unexpected search result %+v", matches)
	}
	if c, ok := FindClient(clients, 3); !ok || c.Name != "Carlos Rodríguez" {
		t.Fatalf("FindClient returned %+v, %v", c, ok)
	}
}
