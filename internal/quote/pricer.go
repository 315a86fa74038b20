package quote

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/money"
	"github.com/odyssey-erp/precifica/internal/shared"
)

// Priced is the output of PriceLine.
type Priced struct {
	SellUnitPrice decimal.Decimal `json:"sell_unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// PriceLine computes PU2 = round2(base × multiplier) and total = round2(quantity × PU2).
func PriceLine(basePrice, quantity, multiplier decimal.Decimal) (Priced, error) {
	if err := nonNegative("base price", basePrice); err != nil {
		return Priced{}, err
	}
	if err := nonNegative("quantity", quantity); err != nil {
		return Priced{}, err
	}
	if err := nonNegative("multiplier", multiplier); err != nil {
		return Priced{}, err
	}
	sell := money.Round2(basePrice.Mul(multiplier))
	return Priced{SellUnitPrice: sell, LineTotal: money.Round2(quantity.Mul(sell))}, nil
}

// NewLine prices an input line. The input must carry a base price.
func NewLine(in LineInput, multiplier decimal.Decimal, label string) (LineItem, error) {
	if in.BaseUnitPrice == nil {
		return LineItem{}, fmt.Errorf("quote: line %q has no base price: %w", in.Description, shared.ErrInvalidInput)
	}
	line := LineItem{
		CatalogReferenceID: in.CatalogReferenceID,
		Description:        in.Description,
		UnitOfMeasure:      in.UnitOfMeasure,
		Quantity:           in.Quantity,
		BaseUnitPrice:      *in.BaseUnitPrice,
	}
	line, err := line.WithMultiplier(multiplier, label)
	if err != nil {
		return LineItem{}, err
	}
	if in.OverrideSellPrice != nil {
		return line.OverrideSellPrice(*in.OverrideSellPrice)
	}
	return line, nil
}

// WithQuantity changes the quantity. PU2 is kept and only the total is re-derived.
func (l LineItem) WithQuantity(quantity decimal.Decimal) (LineItem, error) {
	if err := nonNegative("quantity", quantity); err != nil {
		return l, err
	}
	l.Quantity = quantity
	l.LineTotal = money.Round2(quantity.Mul(l.SellUnitPrice))
	return l, nil
}

// WithBasePrice changes PU1 and re-derives PU2 and the total from the line's multiplier.
// Any manual override is discarded.
func (l LineItem) WithBasePrice(basePrice decimal.Decimal) (LineItem, error) {
	priced, err := PriceLine(basePrice, l.Quantity, l.MarkupMultiplierApplied)
	if err != nil {
		return l, err
	}
	l.BaseUnitPrice = basePrice
	l.apply(priced)
	return l, nil
}

// WithMultiplier re-prices the line against another markup. Any manual override is
// discarded.
func (l LineItem) WithMultiplier(multiplier decimal.Decimal, label string) (LineItem, error) {
	priced, err := PriceLine(l.BaseUnitPrice, l.Quantity, multiplier)
	if err != nil {
		return l, err
	}
	l.MarkupMultiplierApplied = multiplier
	l.MarkupReferenceLabel = label
	l.apply(priced)
	return l, nil
}

// OverrideSellPrice sets PU2 by hand. PU1 and the multiplier stay as the last known
// reference and the line is flagged.
func (l LineItem) OverrideSellPrice(sellPrice decimal.Decimal) (LineItem, error) {
	if err := nonNegative("sell price", sellPrice); err != nil {
		return l, err
	}
	l.SellUnitPrice = money.Round2(sellPrice)
	l.LineTotal = money.Round2(l.Quantity.Mul(l.SellUnitPrice))
	l.ManuallyOverridden = true
	return l, nil
}

func (l *LineItem) apply(p Priced) {
	l.SellUnitPrice = p.SellUnitPrice
	l.LineTotal = p.LineTotal
	l.ManuallyOverridden = false
}

// PriceLines prices every input and numbers the lines from 1.
func PriceLines(inputs []LineInput, multiplier decimal.Decimal, label string) ([]LineItem, error) {
	lines := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		line, err := NewLine(in, multiplier, label)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = AppendLine(lines, line)
	}
	return lines, nil
}

// RefreshLines re-prices lines against a new multiplier. Manually overridden lines are
// returned unchanged.
func RefreshLines(lines []LineItem, multiplier decimal.Decimal, label string) ([]LineItem, error) {
	out := make([]LineItem, len(lines))
	for i, line := range lines {
		if line.ManuallyOverridden {
			out[i] = line
			continue
		}
		refreshed, err := line.WithMultiplier(multiplier, label)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line.SequenceNumber, err)
		}
		out[i] = refreshed
	}
	return out, nil
}

// AppendLine adds line as the next sequence number.
func AppendLine(lines []LineItem, line LineItem) []LineItem {
	line.SequenceNumber = len(lines) + 1
	return append(lines, line)
}

// RemoveLine deletes the line with the given sequence number and renumbers the rest.
func RemoveLine(lines []LineItem, sequence int) ([]LineItem, error) {
	out := make([]LineItem, 0, len(lines))
	found := false
	for _, line := range lines {
		if line.SequenceNumber == sequence && !found {
			found = true
			continue
		}
		out = AppendLine(out, line)
	}
	if !found {
		return lines, fmt.Errorf("quote: line %d: %w", sequence, shared.ErrNotFound)
	}
	return out, nil
}

// SumLines adds every line total.
func SumLines(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal)
	}
	return total
}

func nonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("quote: %s %s must not be negative: %w", field, v.String(), shared.ErrInvalidInput)
	}
	return nil
}
