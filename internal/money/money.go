// Package money holds the cent arithmetic shared by pricing, line item
// derivation and normalization. Values are float64 at the edges and decimal
// inside so rounding is half away from zero on the exact decimal value.
package money

import (
	"github.com/shopspring/decimal"
)

// Round rounds v to the nearest cent, half away from zero.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// RoundPtr rounds a present value and keeps nil as nil.
func RoundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round(*v)
	return &r
}

// Mul returns round(a*b).
func Mul(a, b float64) float64 {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// Div returns round(a/b); b must be non-zero.
func Div(a, b float64) float64 {
	return decimal.NewFromFloat(a).DivRound(decimal.NewFromFloat(b), 2).InexactFloat64()
}

// Sum returns the cent-rounded sum of values.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// ToCents converts a money value to integer cents.
func ToCents(v float64) int64 {
	return decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
}

// FromCents converts integer cents back to a money value.
func FromCents(c int64) float64 {
	return decimal.New(c, -2).InexactFloat64()
}

// Split divides total into n cent-exact shares. The first total%n shares carry
// one extra cent so the shares always add back up to total.
func Split(total float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	cents := ToCents(total)
	base := cents / int64(n)
	remainder := cents % int64(n)
	shares := make([]float64, n)
	for i := range shares {
		c := base
		if int64(i) < remainder {
			c++
		}
		shares[i] = FromCents(c)
	}
	return shares
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
