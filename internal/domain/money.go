package domain

import (
	"math"
	"strconv"
)

// Money is an amount in hundredths of the currency unit.
type Money int64

// MoneyFromFloat rounds a decimal amount to the nearest hundredth.
func MoneyFromFloat(v float64) Money {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return Money(math.Round(v * 100))
}

// Mul multiplies the amount by a quantity.
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

// Float returns the amount in currency units.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// Whole reports whether the amount has no fractional part.
func (m Money) Whole() bool {
	return m%100 == 0
}

// String renders the amount the way it is written to the tabular store:
// "1360" for whole amounts and "12.5" otherwise.
func (m Money) String() string {
	if m.Whole() {
		return strconv.FormatInt(int64(m/100), 10)
	}
	return strconv.FormatFloat(m.Float(), 'f', -1, 64)
}
