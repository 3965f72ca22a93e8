// Package money holds the fixed-point helpers shared by every coupon evaluator.
//
// All amounts are rounded to two fractional digits, half away from zero. For the
// non-negative amounts the engine works with this is the same as half-up.
package money

import "github.com/shopspring/decimal"

// Places is the number of fractional digits kept at every aggregation boundary.
const Places = 2

var (
	// Zero is the zero amount.
	Zero = decimal.Zero
	// Hundred is the percentage divisor.
	Hundred = decimal.NewFromInt(100)
)

// Round rounds d to two fractional digits.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// NonNegative clamps negative values to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return Zero
	}
	return d
}

// Percent returns pct percent of d, unrounded.
func Percent(d, pct decimal.Decimal) decimal.Decimal {
	return d.Mul(pct).Div(Hundred)
}

// Times multiplies a unit amount by an integer quantity.
func Times(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}

// Format renders d with exactly two fractional digits, e.g. "30.00".
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
