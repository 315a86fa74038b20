package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/platform/db"
	"github.com/odyssey-erp/precifica/internal/shared"
)

// LedgerRepository reads period aggregates from the expense ledger tables.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository constructs a LedgerRepository using the provided pool.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

const periodSummariesQuery = `
SELECT year, month, closed, revenue
FROM ledger_periods
WHERE company_id = $1
  AND (year * 12 + month) < ($2 * 12 + $3)
  AND (year * 12 + month) >= ($4 * 12 + $5)
ORDER BY year DESC, month DESC`

const periodExpensesQuery = `
SELECT e.year, e.month, c.name, c.indirect_for_markup, SUM(e.amount)
FROM expenses e
JOIN expense_categories c ON c.id = e.category_id
WHERE e.company_id = $1
  AND (e.year * 12 + e.month) < ($2 * 12 + $3)
  AND (e.year * 12 + e.month) >= ($4 * 12 + $5)
GROUP BY e.year, e.month, c.name, c.indirect_for_markup
ORDER BY c.name`

// PeriodSummaries implements Ledger.
func (r *LedgerRepository) PeriodSummaries(ctx context.Context, companyID int64, before shared.Period, lookbackMonths int) ([]PeriodSummary, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("history: ledger repository not initialised")
	}
	earliest := before.AddMonths(-lookbackMonths)
	rows, err := r.pool.Query(ctx, periodSummariesQuery, companyID, before.Year, before.Month, earliest.Year, earliest.Month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []PeriodSummary
	index := make(map[shared.Period]int)
	for rows.Next() {
		var s PeriodSummary
		if err := rows.Scan(&s.Period.Year, &s.Period.Month, &s.Closed, &s.Revenue); err != nil {
			return nil, err
		}
		index[s.Period] = len(summaries)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}

	oldest := summaries[len(summaries)-1].Period
	expRows, err := r.pool.Query(ctx, periodExpensesQuery, companyID, before.Year, before.Month, oldest.Year, oldest.Month)
	if err != nil {
		return nil, err
	}
	defer expRows.Close()
	for expRows.Next() {
		var (
			period shared.Period
			total  ExpenseTotal
			amount decimal.Decimal
		)
		if err := expRows.Scan(&period.Year, &period.Month, &total.Category, &total.IndirectForMarkup, &amount); err != nil {
			return nil, err
		}
		total.Amount = amount
		pos, ok := index[period]
		if !ok {
			continue
		}
		summaries[pos].Expenses = append(summaries[pos].Expenses, total)
	}
	return summaries, expRows.Err()
}

// RecordPeriod replaces the ledger figures of one month: the period row, its expense
// categories and one expense entry per category total.
func (r *LedgerRepository) RecordPeriod(ctx context.Context, companyID int64, summary PeriodSummary) error {
	if err := summary.Period.Validate(); err != nil {
		return err
	}
	if summary.Revenue.IsNegative() {
		return fmt.Errorf("history: revenue %s must not be negative: %w", summary.Revenue, shared.ErrInvalidInput)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO ledger_periods (company_id, year, month, closed, revenue)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (company_id, year, month) DO UPDATE SET closed = EXCLUDED.closed, revenue = EXCLUDED.revenue`,
			companyID, summary.Period.Year, summary.Period.Month, summary.Closed, summary.Revenue); err != nil {
			return fmt.Errorf("history: record period %s: %w", summary.Period.Key(), err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM expenses WHERE company_id = $1 AND year = $2 AND month = $3`,
			companyID, summary.Period.Year, summary.Period.Month); err != nil {
			return err
		}
		for _, expense := range summary.Expenses {
			var categoryID int64
			err := tx.QueryRow(ctx, `INSERT INTO expense_categories (company_id, name, indirect_for_markup)
VALUES ($1, $2, $3)
ON CONFLICT (company_id, name) DO UPDATE SET indirect_for_markup = EXCLUDED.indirect_for_markup
RETURNING id`, companyID, expense.Category, expense.IndirectForMarkup).Scan(&categoryID)
			if err != nil {
				return fmt.Errorf("history: record category %q: %w", expense.Category, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO expenses (company_id, category_id, year, month, description, amount)
VALUES ($1, $2, $3, $4, $5, $6)`, companyID, categoryID, summary.Period.Year, summary.Period.Month,
				expense.Category, expense.Amount); err != nil {
				return fmt.Errorf("history: record expense %q: %w", expense.Category, err)
			}
		}
		return nil
	})
}
