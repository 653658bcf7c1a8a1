package catalog

import (
	"strconv"
	"strings"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

// Column names of the system of record.
const (
	ColClientID        = "cliente_id"
	ColClientName      = "nombre"
	ColPriceTier       = "lista"
	ColLocality        = "localidad"
	ColCategoryID      = "categoria_id"
	ColCategoryName    = "categoria_nombre"
	ColProductID       = "producto_id"
	ColProductName     = "producto_nombre"
	ColLegacyPrice     = "precio"
	ColActive          = "activo"
	ColOrderID         = "pedido_id"
	ColCreatedAt       = "fecha_hora"
	ColOrderClientName = "cliente_nombre"
	ColItemCount       = "items_cantidad"
	ColTotal           = "total"
	ColStatus          = "estado"
	ColNote            = "observacion"
	ColLineID          = "detalle_id"
	ColQuantity        = "cantidad"
	ColUnitPrice       = "precio_unitario"
	ColLineSubtotal    = "importe"
)

// TimestampLayout is the format of order creation times in the store.
const TimestampLayout = "2006-01-02 15:04:05"

// PriceColumn returns the product column holding the given tier's price.
func PriceColumn(tier int) string {
	return "precio" + strconv.Itoa(tier)
}

// Schema declares how the rows of one entity are interpreted.
type Schema struct {
	Entity   domain.Entity
	Columns  []string
	Required []string
	numeric  map[string]struct{}
}

// IsNumeric reports whether col is coerced to a number.
func (s Schema) IsNumeric(col string) bool {
	_, ok := s.numeric[col]
	return ok
}

func newSchema(entity domain.Entity, columns, required, numeric []string) Schema {
	set := make(map[string]struct{}, len(numeric))
	for _, col := range numeric {
		set[col] = struct{}{}
	}
	return Schema{Entity: entity, Columns: columns, Required: required, numeric: set}
}

var schemas = map[domain.Entity]Schema{
	domain.EntityClients: newSchema(domain.EntityClients,
		[]string{ColClientID, ColClientName, ColPriceTier, ColLocality},
		[]string{ColClientID, ColClientName},
		[]string{ColClientID, ColPriceTier},
	),
	domain.EntityCategories: newSchema(domain.EntityCategories,
		[]string{ColCategoryID, ColCategoryName},
		[]string{ColCategoryID, ColCategoryName},
		[]string{ColCategoryID},
	),
	domain.EntityProducts: newSchema(domain.EntityProducts,
		[]string{ColProductID, ColCategoryID, ColProductName, "precio1", "precio2", "precio3", "precio4", "precio5", ColActive},
		[]string{ColProductID, ColProductName},
		[]string{ColProductID, ColCategoryID, ColLegacyPrice, "precio1", "precio2", "precio3", "precio4", "precio5"},
	),
	domain.EntityOrders: newSchema(domain.EntityOrders,
		[]string{ColOrderID, ColCreatedAt, ColClientID, ColOrderClientName, ColItemCount, ColTotal, ColStatus, ColNote},
		nil,
		[]string{ColClientID, ColItemCount, ColTotal},
	),
	domain.EntityOrderLines: newSchema(domain.EntityOrderLines,
		[]string{ColLineID, ColOrderID, ColProductID, ColProductName, ColCategoryID, ColQuantity, ColUnitPrice, ColLineSubtotal},
		nil,
		[]string{ColProductID, ColCategoryID, ColQuantity, ColUnitPrice, ColLineSubtotal},
	),
}

// SchemaFor returns the schema of entity. Unknown entities get a schema with
// no numeric columns and the generic "any non-empty value" rule.
func SchemaFor(entity domain.Entity) Schema {
	if s, ok := schemas[entity]; ok {
		return s
	}
	return newSchema(entity, nil, nil, nil)
}

// Record is one mapped row. Numeric columns hold float64, all others string.
type Record map[string]any

// Text returns the string form of col.
func (r Record) Text(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// Number returns the numeric value of col, or 0.
func (r Record) Number(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case string:
		return ParseNumber(v)
	}
	return 0
}

// Int returns col truncated to an integer.
func (r Record) Int(col string) int64 {
	return int64(r.Number(col))
}

// MapRows turns raw rows into records. Row 0 supplies the column names; rows
// whose first cell is blank are skipped, as are rows missing a required column.
func MapRows(schema Schema, rows [][]string) []Record {
	if len(rows) == 0 {
		return nil
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		raw := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(row) {
				raw[h] = strings.TrimSpace(row[i])
			} else {
				raw[h] = ""
			}
		}
		if !keepRow(schema, raw) {
			continue
		}
		rec := make(Record, len(raw))
		for col, value := range raw {
			if schema.IsNumeric(col) {
				rec[col] = ParseNumber(value)
			} else {
				rec[col] = value
			}
		}
		records = append(records, rec)
	}
	return records
}

func keepRow(schema Schema, raw map[string]string) bool {
	if len(schema.Required) > 0 {
		for _, col := range schema.Required {
			if raw[col] == "" {
				return false
			}
		}
		return true
	}
	for _, v := range raw {
		if v != "" {
			return true
		}
	}
	return false
}

// ParseNumber parses a loosely formatted number. Commas count as decimal
// separators and characters other than digits, '.' and '-' are dropped; the
// longest numeric prefix of what remains is used. Unparseable input yields 0.
func ParseNumber(value string) float64 {
	var b strings.Builder
	for _, r := range strings.ReplaceAll(value, ",", ".") {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()

	end, seenDigit, seenDot := 0, false, false
scan:
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '-' && i == 0:
		case c == '.' && !seenDot:
			seenDot = true
		case c >= '0' && c <= '9':
			seenDigit = true
		default:
			break scan
		}
		end = i + 1
	}
	if !seenDigit {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0
	}
	return v
}
