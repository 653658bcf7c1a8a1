package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

var (
	oreo = domain.Product{ID: 1, CategoryID: 1, Name: "Oreo Original 117g", Active: true}
	coke = domain.Product{ID: 7, CategoryID: 2, Name: "Coca Cola 500ml", Active: true}
)

func TestCartAddMergesSameProduct(t *testing.T) {
	m := NewCartManager(0)
	var cart domain.Cart

	_, err := m.Add(&cart, coke, 2, 33000)
	require.NoError(t, err)
	item, err := m.Add(&cart, coke, 3, 33000)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, domain.Money(165000), cart.Items[0].Subtotal)
}

func TestCartAddQuantityExceededLeavesCartUnchanged(t *testing.T) {
	m := NewCartManager(999)
	var cart domain.Cart
	_, err := m.Add(&cart, oreo, 995, 42000)
	require.NoError(t, err)
	before := cart.Clone()

	_, err = m.Add(&cart, oreo, 10, 42000)
	require.True(t, errors.Is(err, ErrQuantityExceeded), "got %v", err)
	assert.Equal(t, before, cart)
}

func TestCartAddRejectsInvalidQuantity(t *testing.T) {
	m := NewCartManager(999)
	var cart domain.Cart
	for _, qty := range []int{0, -1} {
		_, err := m.Add(&cart, oreo, qty, 42000)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.NotErrorIs(t, err, ErrQuantityExceeded)
	}
	assert.True(t, cart.Empty())
}

func TestCartAddOverCapIsQuantityExceeded(t *testing.T) {
	m := NewCartManager(999)
	var cart domain.Cart

	_, err := m.Add(&cart, oreo, 1000, 42000)
	assert.ErrorIs(t, err, ErrQuantityExceeded)
	assert.NotErrorIs(t, err, ErrInvalidQuantity)
	assert.True(t, cart.Empty())

	_, err = m.Add(&cart, oreo, 1, 42000)
	require.NoError(t, err)
	_, err = m.Add(&cart, oreo, 1000, 42000)
	assert.ErrorIs(t, err, ErrQuantityExceeded)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestCartRemove(t *testing.T) {
	m := NewCartManager(999)
	var cart domain.Cart
	_, _ = m.Add(&cart, oreo, 1, 42000)
	_, _ = m.Add(&cart, coke, 1, 33000)

	_, err := m.Remove(&cart, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = m.Remove(&cart, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	removed, err := m.Remove(&cart, 0)
	require.NoError(t, err)
	assert.Equal(t, oreo.ID, removed.ProductID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, coke.ID, cart.Items[0].ProductID)
}

func TestCartRemoveDoesNotDisturbClones(t *testing.T) {
	m := NewCartManager(999)
	var cart domain.Cart
	_, _ = m.Add(&cart, oreo, 1, 42000)
	_, _ = m.Add(&cart, coke, 1, 33000)
	snapshot := domain.Cart{Items: cart.Items}

	_, err := m.Remove(&cart, 0)
	require.NoError(t, err)
	assert.Equal(t, oreo.ID, snapshot.Items[0].ProductID)
}

func TestCartSetQuantity(t *testing.T) {
	m := NewCartManager(999)
	var cart domain.Cart
	_, _ = m.Add(&cart, oreo, 2, 42000)

	item, err := m.SetQuantity(&cart, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, domain.Money(126000), item.Subtotal)

	_, err = m.SetQuantity(&cart, 0, -4)
	assert.ErrorIs(t, err, ErrMinimumQuantity)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	_, err = m.SetQuantity(&cart, 0, 997)
	assert.ErrorIs(t, err, ErrQuantityExceeded)

	_, err = m.SetQuantity(&cart, 3, 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = m.SetQuantity(&cart, 0, -3)
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestCartTotalsAndClear(t *testing.T) {
	m := NewCartManager(999)
	var cart domain.Cart
	_, _ = m.Add(&cart, oreo, 2, 33000)
	_, _ = m.Add(&cart, coke, 1, 70000)

	count, amount := Totals(cart)
	assert.Equal(t, 3, count)
	assert.Equal(t, domain.Money(136000), amount)

	m.Clear(&cart)
	count, amount = Totals(cart)
	assert.Zero(t, count)
	assert.Zero(t, amount)
}
