package domain

import "time"

// Entity names a logical table of the tabular store.
type Entity string

const (
	EntityClients    Entity = "Clients"
	EntityCategories Entity = "Categories"
	EntityProducts   Entity = "Products"
	EntityOrders     Entity = "Orders"
	EntityOrderLines Entity = "OrderLines"
)

const (
	// MinPriceTier and MaxPriceTier bound the per-client price list index.
	MinPriceTier = 1
	MaxPriceTier = 5
	// DefaultLocality groups clients that have no locality recorded.
	DefaultLocality = "Sin localidad"
)

// Client is a customer of the distributor. PriceTier is always within [MinPriceTier, MaxPriceTier].
type Client struct {
	ID        int64
	Name      string
	PriceTier int
	Locality  string
}

// Category groups products for browsing.
type Category struct {
	ID   int64
	Name string
}

// Product is a sellable catalog entry priced per tier. Prices[0] is tier 1.
type Product struct {
	ID         int64
	CategoryID int64
	Name       string
	Prices     [MaxPriceTier]Money
	Active     bool
}

// CartItem is a line of the in-progress cart. Subtotal equals Quantity × UnitPrice.
type CartItem struct {
	ProductID   int64
	ProductName string
	CategoryID  int64
	Quantity    int
	UnitPrice   Money
	Subtotal    Money
}

// Cart holds at most one item per product.
type Cart struct {
	Items []CartItem
}

// Len reports the number of distinct items.
func (c Cart) Len() int { return len(c.Items) }

// Empty reports whether the cart has no items.
func (c Cart) Empty() bool { return len(c.Items) == 0 }

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	if c.Items == nil {
		return Cart{}
	}
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}

// OrderStatus is the lifecycle state stored with an order header.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDIENTE"
	OrderStatusConfirmed OrderStatus = "CONFIRMADO"
	OrderStatusCancelled OrderStatus = "CANCELADO"
)

// Valid reports whether the status is one of the known values.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is the persisted header of a confirmed cart.
type Order struct {
	ID         string
	CreatedAt  time.Time
	ClientID   int64
	ClientName string
	ItemCount  int
	Total      Money
	Status     OrderStatus
	Note       string
}

// OrderLine is a persisted cart item of an order. ID is "<orderID>_<n>" with n starting at 1.
type OrderLine struct {
	ID          string
	OrderID     string
	ProductID   int64
	ProductName string
	CategoryID  int64
	Quantity    int
	UnitPrice   Money
	Subtotal    Money
}

// PendingCommit records the rows of an order whose writes have not all been acknowledged.
type PendingCommit struct {
	ID        string     `json:"id"`
	OrderID   string     `json:"orderId"`
	OrderRow  []string   `json:"orderRow"`
	LineRows  [][]string `json:"lineRows"`
	CreatedAt time.Time  `json:"createdAt"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"lastError,omitempty"`
}
