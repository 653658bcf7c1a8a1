package services

import (
	"errors"
	"fmt"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

const defaultMaxQuantity = 999

var (
	// ErrQuantityExceeded is returned when a line would exceed the maximum quantity.
	ErrQuantityExceeded = errors.New("cart: quantity exceeded")
	// ErrIndexOutOfRange is returned for item positions outside the cart.
	ErrIndexOutOfRange = errors.New("cart: index out of range")
	// ErrMinimumQuantity is returned when a decrement would leave a negative quantity.
	ErrMinimumQuantity = errors.New("cart: minimum quantity")
	// ErrInvalidQuantity is returned for non-positive add quantities.
	ErrInvalidQuantity = errors.New("cart: invalid quantity")
)

// CartManager applies mutation rules to a session cart. Every failed operation
// leaves the cart unchanged.
type CartManager struct {
	maxQuantity int
}

// NewCartManager builds a manager capping line quantities at maxQuantity (999 when not positive).
func NewCartManager(maxQuantity int) *CartManager {
	if maxQuantity <= 0 {
		maxQuantity = defaultMaxQuantity
	}
	return &CartManager{maxQuantity: maxQuantity}
}

// MaxQuantity returns the per-line quantity cap.
func (m *CartManager) MaxQuantity() int { return m.maxQuantity }

// Add puts quantity units of product into the cart at unitPrice. A product already
// in the cart keeps its snapshotted name and price and only grows in quantity.
func (m *CartManager) Add(cart *domain.Cart, product domain.Product, quantity int, unitPrice domain.Money) (domain.CartItem, error) {
	if quantity < 1 {
		return domain.CartItem{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.ProductID != product.ID {
			continue
		}
		next := item.Quantity + quantity
		if next > m.maxQuantity {
			return *item, fmt.Errorf("%w: %d + %d > %d", ErrQuantityExceeded, item.Quantity, quantity, m.maxQuantity)
		}
		item.Quantity = next
		item.Subtotal = item.UnitPrice.Mul(next)
		return *item, nil
	}

	if quantity > m.maxQuantity {
		return domain.CartItem{}, fmt.Errorf("%w: %d > %d", ErrQuantityExceeded, quantity, m.maxQuantity)
	}
	item := domain.CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		CategoryID:  product.CategoryID,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Subtotal:    unitPrice.Mul(quantity),
	}
	cart.Items = append(cart.Items, item)
	return item, nil
}

// Remove deletes the item at index.
func (m *CartManager) Remove(cart *domain.Cart, index int) (domain.CartItem, error) {
	if index < 0 || index >= len(cart.Items) {
		return domain.CartItem{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	removed := cart.Items[index]
	cart.Items = append(cart.Items[:index:index], cart.Items[index+1:]...)
	return removed, nil
}

// SetQuantity changes the quantity of the item at index by delta. Reaching zero
// removes the item; going below zero fails with ErrMinimumQuantity. The returned
// item is the zero value when the line was removed.
func (m *CartManager) SetQuantity(cart *domain.Cart, index, delta int) (domain.CartItem, error) {
	if index < 0 || index >= len(cart.Items) {
		return domain.CartItem{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	item := &cart.Items[index]
	next := item.Quantity + delta
	switch {
	case next == 0:
		_, err := m.Remove(cart, index)
		return domain.CartItem{}, err
	case next < 0:
		return *item, fmt.Errorf("%w: %d%+d", ErrMinimumQuantity, item.Quantity, delta)
	case next > m.maxQuantity:
		return *item, fmt.Errorf("%w: %d%+d > %d", ErrQuantityExceeded, item.Quantity, delta, m.maxQuantity)
	}
	item.Quantity = next
	item.Subtotal = item.UnitPrice.Mul(next)
	return *item, nil
}

// Clear empties the cart.
func (m *CartManager) Clear(cart *domain.Cart) {
	cart.Items = nil
}

// Totals returns the number of units and the amount of the cart.
func Totals(cart domain.Cart) (int, domain.Money) {
	var count int
	var amount domain.Money
	for _, item := range cart.Items {
		count += item.Quantity
		amount += item.Subtotal
	}
	return count, amount
}
