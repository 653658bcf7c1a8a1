package services

import (
	"sort"
	"strconv"
	"strings"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/platform/textutil"
)

// SearchProducts returns the active products whose name contains term ignoring
// case, or whose id contains term, optionally limited to one category
// (categoryID 0 means all). Input order is preserved. Minimum term length is
// enforced by callers.
func SearchProducts(products []domain.Product, term string, categoryID int64) []domain.Product {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	folded := textutil.Fold(term)
	var out []domain.Product
	for _, p := range products {
		if !p.Active || (categoryID != 0 && p.CategoryID != categoryID) {
			continue
		}
		if strings.Contains(textutil.Fold(p.Name), folded) || strings.Contains(strconv.FormatInt(p.ID, 10), term) {
			out = append(out, p)
		}
	}
	return out
}

// ActiveInCategory lists the sellable products of one category.
func ActiveInCategory(products []domain.Product, categoryID int64) []domain.Product {
	var out []domain.Product
	for _, p := range products {
		if p.Active && p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out
}

// FindProduct looks a product up by id.
func FindProduct(products []domain.Product, id int64) (domain.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// SearchClients matches clients by name substring ignoring case.
func SearchClients(clients []domain.Client, term string) []domain.Client {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	var out []domain.Client
	for _, c := range clients {
		if textutil.ContainsFold(c.Name, term) {
			out = append(out, c)
		}
	}
	return out
}

// FindClient looks a client up by id.
func FindClient(clients []domain.Client, id int64) (domain.Client, bool) {
	for _, c := range clients {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Client{}, false
}

// LocalityGroup is the set of clients sharing a locality.
type LocalityGroup struct {
	Name    string
	Clients []domain.Client
}

// GroupByLocality groups clients by locality, sorted by locality name. Clients
// without a locality fall under domain.DefaultLocality.
func GroupByLocality(clients []domain.Client) []LocalityGroup {
	index := make(map[string]int)
	var groups []LocalityGroup
	for _, c := range clients {
		name := strings.TrimSpace(c.Locality)
		if name == "" {
			name = domain.DefaultLocality
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, LocalityGroup{Name: name})
		}
		groups[i].Clients = append(groups[i].Clients, c)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return textutil.Fold(groups[i].Name) < textutil.Fold(groups[j].Name)
	})
	return groups
}

// ClientsInLocality returns the clients of one locality group.
func ClientsInLocality(clients []domain.Client, locality string) []domain.Client {
	for _, g := range GroupByLocality(clients) {
		if g.Name == locality {
			return g.Clients
		}
	}
	return nil
}
