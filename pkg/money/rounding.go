// Package money holds the rounding rules shared by the fund's ledger
// computations. Amounts are plain decimals in the fund's single currency.
package money

import "github.com/shopspring/decimal"

// StatutoryUnit is the unit every scheduled installment figure is rounded up to.
var StatutoryUnit = decimal.NewFromInt(1000)

// CeilToUnit rounds d up to the next multiple of unit. Values that are already
// a multiple are returned unchanged. A non-positive unit returns d.
func CeilToUnit(d, unit decimal.Decimal) decimal.Decimal {
	if !unit.IsPositive() {
		return d
	}
	return d.Div(unit).Ceil().Mul(unit)
}

// CeilThousand applies the statutory rounding rule.
func CeilThousand(d decimal.Decimal) decimal.Decimal {
	return CeilToUnit(d, StatutoryUnit)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Floor0 returns d, or zero when d is negative.
func Floor0(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
