package services

import "github.com/SIMPLIKARG/TESTING/internal/domain"

// Price returns the unit price of product for a client price tier. A missing or
// zero tier price falls back to tier 1; tiers outside [1, 5] are read as tier 1.
// The result is 0 when tier 1 is also missing.
func Price(product domain.Product, tier int) domain.Money {
	if tier < domain.MinPriceTier || tier > domain.MaxPriceTier {
		tier = domain.MinPriceTier
	}
	if p := product.Prices[tier-1]; p > 0 {
		return p
	}
	if p := product.Prices[0]; p > 0 {
		return p
	}
	return 0
}
