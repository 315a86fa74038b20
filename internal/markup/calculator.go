package markup

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/shared"
)

const (
	multiplierPlaces = 4
	bdiPlaces        = 2
	divisionPlaces   = 16
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Compute derives the markup multiplier (1+X)(1+Y)(1+Z)/(1-I) and the BDI percentage.
// The multiplier is rounded to 4 places and BDI is derived from the rounded value, so
// every downstream price reproduces after a save and reload.
func Compute(rates RateInputs) (Result, error) {
	if err := validateRates(rates); err != nil {
		return Result{}, err
	}
	taxes := rates.Taxes.Total()
	if taxes.GreaterThanOrEqual(one) {
		return Result{}, fmt.Errorf("markup: combined taxes %s%%: %w", taxes.Mul(hundred).String(), shared.ErrInvalidTaxRate)
	}
	numerator := one.Add(rates.IndirectsRate).
		Mul(one.Add(rates.FinancialRate)).
		Mul(one.Add(rates.ProfitRate))
	multiplier := numerator.DivRound(one.Sub(taxes), divisionPlaces).Round(multiplierPlaces)
	bdi := multiplier.Sub(one).Mul(hundred).Round(bdiPlaces)
	return Result{Multiplier: multiplier, BDIPercent: bdi}, nil
}

func validateRates(rates RateInputs) error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"sales_tax_rate", rates.Taxes.SalesTaxRate},
		{"service_tax_rate", rates.Taxes.ServiceTaxRate},
		{"indirects_rate", rates.IndirectsRate},
		{"financial_rate", rates.FinancialRate},
		{"profit_rate", rates.ProfitRate},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return fmt.Errorf("markup: %s must not be negative: %w", f.name, shared.ErrInvalidInput)
		}
	}
	return nil
}
