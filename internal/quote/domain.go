// Package quote prices quote lines from a markup multiplier, folds in internal costs and
// attaches a payment plan.
package quote

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/payment"
)

// LineItem is one priced quote line. LineTotal is always derived, never edited.
type LineItem struct {
	SequenceNumber          int             `json:"sequence_number"`
	CatalogReferenceID      *int64          `json:"catalog_reference_id,omitempty"`
	Description             string          `json:"description"`
	UnitOfMeasure           string          `json:"unit_of_measure"`
	Quantity                decimal.Decimal `json:"quantity"`
	BaseUnitPrice           decimal.Decimal `json:"base_unit_price"`
	MarkupMultiplierApplied decimal.Decimal `json:"markup_multiplier_applied"`
	SellUnitPrice           decimal.Decimal `json:"sell_unit_price"`
	LineTotal               decimal.Decimal `json:"line_total"`
	MarkupReferenceLabel    string          `json:"markup_reference_label"`
	ManuallyOverridden      bool            `json:"manually_overridden"`
}

// LineInput is an unpriced line. BaseUnitPrice may be omitted for catalog lines, in
// which case the catalog price is used.
type LineInput struct {
	CatalogReferenceID *int64           `json:"catalog_reference_id,omitempty"`
	Description        string           `json:"description"`
	UnitOfMeasure      string           `json:"unit_of_measure"`
	Quantity           decimal.Decimal  `json:"quantity"`
	BaseUnitPrice      *decimal.Decimal `json:"base_unit_price,omitempty"`
	OverrideSellPrice  *decimal.Decimal `json:"override_sell_price,omitempty"`
}

// Totals summarises a priced quote.
type Totals struct {
	LinesTotal             decimal.Decimal `json:"lines_total"`
	InternalCostTotal      decimal.Decimal `json:"internal_cost_total"`
	InternalPriceTotal     decimal.Decimal `json:"internal_price_total"`
	InternalDisclosedPrice decimal.Decimal `json:"internal_disclosed_price"`
	GrandTotal             decimal.Decimal `json:"grand_total"`
}

// Quote is a priced proposal. Prices are a snapshot of the multiplier in force when the
// quote was priced; later profile changes only apply through an explicit reprice.
type Quote struct {
	ID                uuid.UUID             `json:"id"`
	CompanyID         int64                 `json:"company_id"`
	ProfileID         *int64                `json:"profile_id,omitempty"`
	CustomerName      string                `json:"customer_name"`
	Multiplier        decimal.Decimal       `json:"multiplier"`
	MarkupLabel       string                `json:"markup_label"`
	Lines             []LineItem            `json:"lines"`
	HiddenCosts       []HiddenCost          `json:"hidden_costs"`
	InternalMaterials []InternalUseMaterial `json:"internal_materials"`
	InternalCosts     Aggregate             `json:"internal_costs"`
	PaymentConfig     *payment.Config       `json:"payment_config,omitempty"`
	PaymentPlan       *payment.Plan         `json:"payment_plan,omitempty"`
	Totals            Totals                `json:"totals"`
	Version           int64                 `json:"version"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}
