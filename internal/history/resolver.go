package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/observability"
	"github.com/odyssey-erp/precifica/internal/shared"
)

const (
	defaultLookbackMonths = 12
	ratioPlaces           = 2
	divisionPlaces        = 16
)

var (
	hundred             = decimal.NewFromInt(100)
	defaultRevenueFloor = decimal.NewFromInt(1000)
)

// Config tunes the reference period policy.
type Config struct {
	LookbackMonths int
	RevenueFloor   decimal.Decimal
}

// Resolver computes X_real from the closest prior closed period with revenue.
type Resolver struct {
	ledger  Ledger
	cache   *Cache
	cfg     Config
	logger  *slog.Logger
	metrics *observability.PricingMetrics
	now     func() time.Time
}

// NewResolver constructs a Resolver. cache, logger and metrics may be nil.
func NewResolver(ledger Ledger, cache *Cache, cfg Config, logger *slog.Logger, metrics *observability.PricingMetrics) *Resolver {
	if cfg.LookbackMonths <= 0 {
		cfg.LookbackMonths = defaultLookbackMonths
	}
	if !cfg.RevenueFloor.IsPositive() {
		cfg.RevenueFloor = defaultRevenueFloor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		ledger:  ledger,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (r *Resolver) WithNow(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Resolve returns the historical ratio to use for the target period. It fails with
// shared.ErrNoReferenceData instead of assuming a zero ratio.
func (r *Resolver) Resolve(ctx context.Context, companyID int64, period shared.Period) (Result, error) {
	if companyID <= 0 {
		return Result{}, fmt.Errorf("history: company id required: %w", shared.ErrInvalidInput)
	}
	if err := period.Validate(); err != nil {
		return Result{}, err
	}
	key, err := r.cache.BuildKey(ctx, "history", "ratio", strconv.FormatInt(companyID, 10), period.Key(), strconv.Itoa(r.cfg.LookbackMonths))
	if err != nil {
		return Result{}, fmt.Errorf("history: cache key: %w", err)
	}
	var result Result
	err = r.cache.FetchJSON(ctx, key, &result, func(ctx context.Context) (interface{}, error) {
		return r.compute(ctx, companyID, period)
	})
	if err != nil {
		r.metrics.ObserveResolution(outcomeOf(err))
		if errors.Is(err, shared.ErrNoReferenceData) {
			r.logger.Info("historical ratio unavailable", slog.Int64("company_id", companyID), slog.String("period", period.Key()), slog.Any("error", err))
		}
		return Result{}, err
	}
	outcome := "ok"
	if result.Warning != "" {
		outcome = "warning"
	}
	r.metrics.ObserveResolution(outcome)
	return result, nil
}

func (r *Resolver) compute(ctx context.Context, companyID int64, period shared.Period) (Result, error) {
	summaries, err := r.ledger.PeriodSummaries(ctx, companyID, period, r.cfg.LookbackMonths)
	if err != nil {
		return Result{}, fmt.Errorf("history: load ledger periods: %w", err)
	}
	if len(summaries) == 0 {
		return Result{}, fmt.Errorf("%w: ledger has no periods in the %d months before %s for company %d", shared.ErrNoReferenceData, r.cfg.LookbackMonths, period.Label(), companyID)
	}
	earliest := period.AddMonths(-r.cfg.LookbackMonths)
	var openSkipped, emptySkipped, unflaggedSkipped int
	for _, summary := range summaries {
		if !summary.Period.Before(period) || summary.Period.Before(earliest) {
			continue
		}
		if !summary.Closed {
			openSkipped++
			continue
		}
		if !summary.Revenue.IsPositive() {
			emptySkipped++
			continue
		}
		if !hasIndirect(summary) {
			unflaggedSkipped++
			continue
		}
		return r.build(summary), nil
	}
	return Result{}, fmt.Errorf(
		"%w: no closed period with revenue and indirect expenses in the %d months before %s (%d still open, %d without revenue, %d without indirect categories)",
		shared.ErrNoReferenceData, r.cfg.LookbackMonths, period.Label(), openSkipped, emptySkipped, unflaggedSkipped,
	)
}

// hasIndirect reports whether any expense category of the period is flagged for markup.
func hasIndirect(summary PeriodSummary) bool {
	for _, expense := range summary.Expenses {
		if expense.IndirectForMarkup {
			return true
		}
	}
	return false
}

func (r *Resolver) build(summary PeriodSummary) Result {
	indirect := decimal.Zero
	seen := make(map[string]struct{})
	var categories []string
	for _, expense := range summary.Expenses {
		if !expense.IndirectForMarkup {
			continue
		}
		indirect = indirect.Add(expense.Amount)
		if _, ok := seen[expense.Category]; ok {
			continue
		}
		seen[expense.Category] = struct{}{}
		categories = append(categories, expense.Category)
	}
	sort.Strings(categories)

	ratioPercent := indirect.DivRound(summary.Revenue, divisionPlaces).Mul(hundred).Round(ratioPlaces)
	var warnings []string
	if summary.Revenue.LessThan(r.cfg.RevenueFloor) {
		warnings = append(warnings, fmt.Sprintf("revenue base %s is below %s; ratio may be unstable", summary.Revenue.StringFixed(2), r.cfg.RevenueFloor.StringFixed(2)))
	}
	if ratioPercent.GreaterThan(hundred) {
		warnings = append(warnings, "indirect expenses exceed revenue")
	}
	return Result{
		RatioPercent:          ratioPercent,
		Ratio:                 ratioPercent.Div(hundred),
		ReferencePeriod:       summary.Period,
		ReferencePeriodLabel:  summary.Period.Label(),
		IndirectExpensesTotal: indirect,
		RevenueBase:           summary.Revenue,
		CategoriesUsed:        categories,
		Warning:               strings.Join(warnings, "; "),
		ComputedAt:            r.now().UTC(),
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, shared.ErrNoReferenceData) {
		return "no_reference"
	}
	return "error"
}
