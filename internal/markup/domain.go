package markup

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/shared"
)

// Mode selects how the indirect-cost rate of a profile is obtained.
type Mode string

const (
	ModeManual         Mode = "MANUAL"
	ModeAutoHistorical Mode = "AUTO_HISTORICAL"
)

// Status captures the profile lifecycle.
type Status string

const (
	StatusOpen   Status = shared.PeriodStatusOpen
	StatusClosed Status = shared.PeriodStatusClosed
)

// TaxRates groups the taxes charged on the selling price, as fractions.
type TaxRates struct {
	SalesTaxRate                     decimal.Decimal `json:"sales_tax_rate"`
	ServiceTaxRate                   decimal.Decimal `json:"service_tax_rate"`
	IncludeMaterialsInServiceTaxBase bool            `json:"include_materials_in_service_tax_base"`
}

// Total returns the combined tax rate I.
func (t TaxRates) Total() decimal.Decimal {
	return t.SalesTaxRate.Add(t.ServiceTaxRate)
}

// RateInputs is the fully resolved rate configuration consumed by Compute.
type RateInputs struct {
	Taxes         TaxRates        `json:"taxes"`
	IndirectsRate decimal.Decimal `json:"indirects_rate"`
	FinancialRate decimal.Decimal `json:"financial_rate"`
	ProfitRate    decimal.Decimal `json:"profit_rate"`
}

// Result holds the derived multiplier and BDI.
type Result struct {
	Multiplier decimal.Decimal `json:"multiplier"`
	BDIPercent decimal.Decimal `json:"bdi_percent"`
}

// AutoDerivation records where an AUTO_HISTORICAL indirect rate came from.
type AutoDerivation struct {
	AppliedRatio          decimal.Decimal `json:"applied_ratio"`
	ReferencePeriod       shared.Period   `json:"reference_period"`
	IndirectExpensesTotal decimal.Decimal `json:"indirect_expenses_total"`
	RevenueBase           decimal.Decimal `json:"revenue_base"`
	CategoriesUsed        []string        `json:"categories_used,omitempty"`
	Warning               string          `json:"warning,omitempty"`
	ComputedAt            time.Time       `json:"computed_at"`
}

// Profile is the period-scoped markup configuration of a company.
type Profile struct {
	ID             int64           `json:"id"`
	CompanyID      int64           `json:"company_id"`
	Period         shared.Period   `json:"period"`
	Rates          RateInputs      `json:"rates"`
	Mode           Mode            `json:"mode"`
	AutoDerivation *AutoDerivation `json:"auto_derivation,omitempty"`
	Status         Status          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	BDIPercent     decimal.Decimal `json:"bdi_percent"`
	Version        int64           `json:"version"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewProfile returns an unsaved OPEN profile for the period.
func NewProfile(companyID int64, period shared.Period) Profile {
	return Profile{
		CompanyID: companyID,
		Period:    period,
		Mode:      ModeManual,
		Status:    StatusOpen,
	}
}

// IsClosed reports whether writes are frozen.
func (p Profile) IsClosed() bool {
	return p.Status == StatusClosed
}

// Label identifies the profile on priced lines, e.g. "Markup 03/2025 (1.4547)".
func (p Profile) Label() string {
	return "Markup " + p.Period.Label() + " (" + p.Multiplier.StringFixed(4) + ")"
}

// ConfigureManualInput carries a manual rate configuration. A non-zero
// ExpectedVersion must match the stored profile.
type ConfigureManualInput struct {
	CompanyID       int64
	Period          shared.Period
	Rates           RateInputs
	Notes           *string
	ExpectedVersion int64
}

// ConfigureHistoricalInput carries taxes, financial and profit rates; the indirect rate
// is resolved from the ledger.
type ConfigureHistoricalInput struct {
	CompanyID       int64
	Period          shared.Period
	Taxes           TaxRates
	FinancialRate   decimal.Decimal
	ProfitRate      decimal.Decimal
	Notes           *string
	ExpectedVersion int64
}

// MovePeriodInput moves an open profile to another month.
type MovePeriodInput struct {
	ID              int64
	Period          shared.Period
	ExpectedVersion int64
}

// UpdateNotesInput replaces the free-text notes of a profile.
type UpdateNotesInput struct {
	ID              int64
	Notes           string
	ExpectedVersion int64
}
