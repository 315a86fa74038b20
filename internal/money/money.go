// Package money holds integer-cent arithmetic used by pricing and payment schedules.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is an amount expressed in the smallest currency unit.
type Cents int64

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FromDecimal converts a currency amount to cents, rounding to the nearest cent.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// Decimal converts cents back to a currency amount with two decimal places.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String renders the amount with two decimals.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Split divides c into n parts of equal size, leaving any remainder on the last part.
func (c Cents) Split(n int) ([]Cents, error) {
	if n <= 0 {
		return nil, fmt.Errorf("money: cannot split into %d parts", n)
	}
	share := c / Cents(n)
	parts := make([]Cents, n)
	for i := range parts {
		parts[i] = share
	}
	parts[n-1] = c - share*Cents(n-1)
	return parts, nil
}

// Sum adds all amounts.
func Sum(values ...Cents) Cents {
	var total Cents
	for _, v := range values {
		total += v
	}
	return total
}
