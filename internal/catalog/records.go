package catalog

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

// Loaded is a typed fetch result.
type Loaded[T any] struct {
	Items    []T
	Status   Status
	Fallback bool
	Err      error
}

// Unavailable reports whether the store failed and no fallback data stands in.
func (l Loaded[T]) Unavailable() bool {
	return l.Status == StatusUnavailable && len(l.Items) == 0
}

func decodeAll[T any](res Result, decode func(Record) T) Loaded[T] {
	items := make([]T, 0, len(res.Records))
	for _, rec := range res.Records {
		items = append(items, decode(rec))
	}
	return Loaded[T]{Items: items, Status: res.Status, Fallback: res.Fallback, Err: res.Err}
}

// Clients loads all clients.
func (r *Repository) Clients(ctx context.Context) Loaded[domain.Client] {
	return decodeAll(r.Fetch(ctx, domain.EntityClients), DecodeClient)
}

// Categories loads all categories.
func (r *Repository) Categories(ctx context.Context) Loaded[domain.Category] {
	return decodeAll(r.Fetch(ctx, domain.EntityCategories), DecodeCategory)
}

// Products loads all products, active or not.
func (r *Repository) Products(ctx context.Context) Loaded[domain.Product] {
	return decodeAll(r.Fetch(ctx, domain.EntityProducts), DecodeProduct)
}

// Orders loads all order headers.
func (r *Repository) Orders(ctx context.Context) Loaded[domain.Order] {
	return decodeAll(r.Fetch(ctx, domain.EntityOrders), DecodeOrder)
}

// OrderLines loads all order lines.
func (r *Repository) OrderLines(ctx context.Context) Loaded[domain.OrderLine] {
	return decodeAll(r.Fetch(ctx, domain.EntityOrderLines), DecodeOrderLine)
}

// DecodeClient maps a client record. Missing or out-of-range tiers are clamped
// into [1, 5] with 0 treated as tier 1.
func DecodeClient(rec Record) domain.Client {
	tier := int(rec.Int(ColPriceTier))
	tier = min(max(tier, domain.MinPriceTier), domain.MaxPriceTier)
	locality := rec.Text(ColLocality)
	if locality == "" {
		locality = domain.DefaultLocality
	}
	return domain.Client{
		ID:        rec.Int(ColClientID),
		Name:      rec.Text(ColClientName),
		PriceTier: tier,
		Locality:  locality,
	}
}

func DecodeCategory(rec Record) domain.Category {
	return domain.Category{ID: rec.Int(ColCategoryID), Name: rec.Text(ColCategoryName)}
}

// DecodeProduct maps a product record. A legacy single "precio" column stands in
// for tier 1 when precio1 is absent or zero.
func DecodeProduct(rec Record) domain.Product {
	p := domain.Product{
		ID:         rec.Int(ColProductID),
		CategoryID: rec.Int(ColCategoryID),
		Name:       rec.Text(ColProductName),
		Active:     isActive(rec.Text(ColActive)),
	}
	for tier := domain.MinPriceTier; tier <= domain.MaxPriceTier; tier++ {
		p.Prices[tier-1] = domain.MoneyFromFloat(rec.Number(PriceColumn(tier)))
	}
	if p.Prices[0] == 0 {
		p.Prices[0] = domain.MoneyFromFloat(rec.Number(ColLegacyPrice))
	}
	return p
}

func isActive(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "si", "sí", "true", "1", "yes":
		return true
	}
	return false
}

// DecodeOrder reads an order header. Rows written before the sheet layout was fixed
// carry ISO-8601 timestamps and are accepted as well.
func DecodeOrder(rec Record) domain.Order {
	created := parseOrderTime(rec.Text(ColCreatedAt))
	return domain.Order{
		ID:         rec.Text(ColOrderID),
		CreatedAt:  created,
		ClientID:   rec.Int(ColClientID),
		ClientName: rec.Text(ColOrderClientName),
		ItemCount:  int(rec.Int(ColItemCount)),
		Total:      domain.MoneyFromFloat(rec.Number(ColTotal)),
		Status:     domain.OrderStatus(strings.ToUpper(rec.Text(ColStatus))),
		Note:       rec.Text(ColNote),
	}
}

func parseOrderTime(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func DecodeOrderLine(rec Record) domain.OrderLine {
	return domain.OrderLine{
		ID:          rec.Text(ColLineID),
		OrderID:     rec.Text(ColOrderID),
		ProductID:   rec.Int(ColProductID),
		ProductName: rec.Text(ColProductName),
		CategoryID:  rec.Int(ColCategoryID),
		Quantity:    int(rec.Int(ColQuantity)),
		UnitPrice:   domain.MoneyFromFloat(rec.Number(ColUnitPrice)),
		Subtotal:    domain.MoneyFromFloat(rec.Number(ColLineSubtotal)),
	}
}

// OrderRow renders an order header in store column order.
func OrderRow(o domain.Order) []string {
	return []string{
		o.ID,
		o.CreatedAt.Format(TimestampLayout),
		strconv.FormatInt(o.ClientID, 10),
		o.ClientName,
		strconv.Itoa(o.ItemCount),
		o.Total.String(),
		string(o.Status),
		o.Note,
	}
}

// OrderLineRow renders an order line in store column order.
func OrderLineRow(l domain.OrderLine) []string {
	return []string{
		l.ID,
		l.OrderID,
		strconv.FormatInt(l.ProductID, 10),
		l.ProductName,
		strconv.FormatInt(l.CategoryID, 10),
		strconv.Itoa(l.Quantity),
		l.UnitPrice.String(),
		l.Subtotal.String(),
	}
}

// ClientRow renders a client in store column order.
func ClientRow(c domain.Client) []string {
	return []string{strconv.FormatInt(c.ID, 10), c.Name, strconv.Itoa(c.PriceTier), c.Locality}
}

// CategoryRow renders a category in store column order.
func CategoryRow(c domain.Category) []string {
	return []string{strconv.FormatInt(c.ID, 10), c.Name}
}

// ProductRow renders a product in store column order.
func ProductRow(p domain.Product) []string {
	row := []string{strconv.FormatInt(p.ID, 10), strconv.FormatInt(p.CategoryID, 10), p.Name}
	for _, price := range p.Prices {
		row = append(row, price.String())
	}
	active := "NO"
	if p.Active {
		active = "SI"
	}
	return append(row, active)
}

// ParseOrderRow decodes a row in OrderRow's column order.
func ParseOrderRow(row []string) domain.Order {
	schema := SchemaFor(domain.EntityOrders)
	records := MapRows(schema, [][]string{schema.Columns, row})
	if len(records) == 0 {
		return domain.Order{}
	}
	return DecodeOrder(records[0])
}
