package markup

import (
	"github.com/shopspring/decimal"
)

// RateSource is a resolved origin for a profile's rates: ManualSource or HistoricalSource.
type RateSource interface {
	resolve() (RateInputs, Mode, *AutoDerivation)
}

// ManualSource carries rates entered by the user.
type ManualSource struct {
	Rates RateInputs
}

func (s ManualSource) resolve() (RateInputs, Mode, *AutoDerivation) {
	return s.Rates, ModeManual, nil
}

// HistoricalSource carries user rates plus an indirect ratio derived from the ledger.
// Base.IndirectsRate is ignored; Derivation.AppliedRatio replaces it.
type HistoricalSource struct {
	Base       RateInputs
	Derivation AutoDerivation
}

func (s HistoricalSource) resolve() (RateInputs, Mode, *AutoDerivation) {
	rates := s.Base
	rates.IndirectsRate = s.Derivation.AppliedRatio
	derivation := s.Derivation
	derivation.CategoriesUsed = append([]string(nil), s.Derivation.CategoriesUsed...)
	return rates, ModeAutoHistorical, &derivation
}

func ratesEqual(a, b RateInputs) bool {
	eq := func(x, y decimal.Decimal) bool { return x.Equal(y) }
	return eq(a.Taxes.SalesTaxRate, b.Taxes.SalesTaxRate) &&
		eq(a.Taxes.ServiceTaxRate, b.Taxes.ServiceTaxRate) &&
		a.Taxes.IncludeMaterialsInServiceTaxBase == b.Taxes.IncludeMaterialsInServiceTaxBase &&
		eq(a.IndirectsRate, b.IndirectsRate) &&
		eq(a.FinancialRate, b.FinancialRate) &&
		eq(a.ProfitRate, b.ProfitRate)
}
