// Package history derives the indirect-cost ratio of a company from a prior ledger period.
package history

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/shared"
)

// ExpenseTotal is the aggregated amount of one expense category within a period.
type ExpenseTotal struct {
	Category          string          `json:"category"`
	Amount            decimal.Decimal `json:"amount"`
	IndirectForMarkup bool            `json:"indirect_for_markup"`
}

// PeriodSummary is the ledger view of one month.
type PeriodSummary struct {
	Period   shared.Period
	Closed   bool
	Revenue  decimal.Decimal
	Expenses []ExpenseTotal
}

// Ledger reads period aggregates from the expense ledger.
type Ledger interface {
	// PeriodSummaries returns the summaries of the lookbackMonths months strictly before
	// the given period, most recent first.
	PeriodSummaries(ctx context.Context, companyID int64, before shared.Period, lookbackMonths int) ([]PeriodSummary, error)
}

// Result is a resolved historical indirect ratio (X_real).
type Result struct {
	RatioPercent          decimal.Decimal `json:"ratio_percent"`
	Ratio                 decimal.Decimal `json:"ratio"`
	ReferencePeriod       shared.Period   `json:"reference_period"`
	ReferencePeriodLabel  string          `json:"reference_period_label"`
	IndirectExpensesTotal decimal.Decimal `json:"indirect_expenses_total"`
	RevenueBase           decimal.Decimal `json:"revenue_base"`
	CategoriesUsed        []string        `json:"categories_used"`
	Warning               string          `json:"warning,omitempty"`
	ComputedAt            time.Time       `json:"computed_at"`
}
