package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/catalog"
	"github.com/odyssey-erp/precifica/internal/markup"
	"github.com/odyssey-erp/precifica/internal/observability"
	"github.com/odyssey-erp/precifica/internal/payment"
	"github.com/odyssey-erp/precifica/internal/shared"
)

// Repository persists priced quotes. Update must fail with shared.ErrConflict when the
// stored version differs from q.Version.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Quote, error)
	ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]Quote, error)
	CountByCompany(ctx context.Context, companyID int64) (int, error)
	Insert(ctx context.Context, q Quote) (Quote, error)
	Update(ctx context.Context, q Quote) (Quote, error)
}

// CatalogReader resolves catalog references on quote lines.
type CatalogReader interface {
	ListByIDs(ctx context.Context, companyID int64, ids []int64) (map[int64]catalog.Item, error)
}

// ProfileReader loads the markup profile a quote is priced against.
type ProfileReader interface {
	GetProfile(ctx context.Context, id int64) (markup.Profile, error)
	GetProfileByPeriod(ctx context.Context, companyID int64, period shared.Period) (markup.Profile, error)
}

// IdempotencyGuard rejects replayed requests.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const idempotencyModule = "quote"

// PriceQuoteInput describes a quote to price. ProfileID takes precedence over Period.
type PriceQuoteInput struct {
	CompanyID         int64
	ProfileID         int64
	Period            shared.Period
	CustomerName      string
	Lines             []LineInput
	HiddenCosts       []HiddenCost
	InternalMaterials []InternalUseMaterial
	Payment           *payment.Config
	IdempotencyKey    string
}

// Page is one page of stored quotes.
type Page struct {
	Items      []Quote           `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// Service prices and stores quotes.
type Service struct {
	repo     Repository
	catalog  CatalogReader
	profiles ProfileReader
	keys     IdempotencyGuard
	logger   *slog.Logger
	metrics  *observability.PricingMetrics
	now      func() time.Time
}

// NewService wires a quote Service. logger and metrics may be nil.
func NewService(repo Repository, catalog CatalogReader, profiles ProfileReader, logger *slog.Logger, metrics *observability.PricingMetrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		profiles: profiles,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// WithIdempotency enables Idempotency-Key handling on PriceQuote.
func (s *Service) WithIdempotency(keys IdempotencyGuard) {
	s.keys = keys
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PriceLines prices lines against an explicit multiplier without persisting anything.
func (s *Service) PriceLines(inputs []LineInput, multiplier decimal.Decimal, label string) ([]LineItem, error) {
	lines, err := PriceLines(inputs, multiplier, label)
	if err != nil {
		return nil, err
	}
	s.observeLines(lines)
	return lines, nil
}

// AggregateInternalCosts folds internal costs against an explicit multiplier.
func (s *Service) AggregateInternalCosts(hidden []HiddenCost, materials []InternalUseMaterial, multiplier decimal.Decimal) (Aggregate, error) {
	return AggregateInternalCosts(hidden, materials, multiplier)
}

// BuildPaymentPlan schedules total under cfg.
func (s *Service) BuildPaymentPlan(total decimal.Decimal, cfg payment.Config) (payment.Plan, error) {
	plan, err := payment.Build(total, cfg)
	s.metrics.ObservePlan(err)
	return plan, err
}

// PriceQuote resolves catalog lines, prices everything against the selected profile and
// stores the result.
func (s *Service) PriceQuote(ctx context.Context, in PriceQuoteInput) (Quote, error) {
	if in.CompanyID <= 0 {
		return Quote{}, fmt.Errorf("quote: company id required: %w", shared.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return Quote{}, fmt.Errorf("quote: at least one line required: %w", shared.ErrInvalidInput)
	}
	if in.IdempotencyKey != "" && s.keys != nil {
		key := fmt.Sprintf("%s:%d:%s", idempotencyModule, in.CompanyID, in.IdempotencyKey)
		if err := s.keys.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			return Quote{}, err
		}
		q, err := s.priceQuote(ctx, in)
		if err != nil {
			if delErr := s.keys.Delete(ctx, key); delErr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
			}
			return Quote{}, err
		}
		return q, nil
	}
	return s.priceQuote(ctx, in)
}

func (s *Service) priceQuote(ctx context.Context, in PriceQuoteInput) (Quote, error) {
	profile, err := s.profileFor(ctx, in)
	if err != nil {
		return Quote{}, err
	}
	inputs, err := s.resolveCatalog(ctx, in.CompanyID, in.Lines)
	if err != nil {
		return Quote{}, err
	}
	lines, err := s.PriceLines(inputs, profile.Multiplier, profile.Label())
	if err != nil {
		return Quote{}, err
	}
	profileID := profile.ID
	now := s.now().UTC()
	q := Quote{
		ID:                uuid.New(),
		CompanyID:         in.CompanyID,
		ProfileID:         &profileID,
		CustomerName:      in.CustomerName,
		Multiplier:        profile.Multiplier,
		MarkupLabel:       profile.Label(),
		Lines:             lines,
		HiddenCosts:       in.HiddenCosts,
		InternalMaterials: in.InternalMaterials,
		PaymentConfig:     in.Payment,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.settle(&q); err != nil {
		return Quote{}, err
	}
	saved, err := s.repo.Insert(ctx, q)
	if err != nil {
		return Quote{}, err
	}
	s.logger.Info("quote priced",
		slog.String("quote_id", saved.ID.String()),
		slog.Int64("company_id", saved.CompanyID),
		slog.Int("lines", len(saved.Lines)),
		slog.String("grand_total", saved.Totals.GrandTotal.StringFixed(2)),
	)
	return saved, nil
}

// GetQuote loads a stored quote.
func (s *Service) GetQuote(ctx context.Context, id uuid.UUID) (Quote, error) {
	return s.repo.Get(ctx, id)
}

// ListQuotes returns one page of a company's quotes, newest first.
func (s *Service) ListQuotes(ctx context.Context, companyID int64, page, perPage int) (Page, error) {
	if companyID <= 0 {
		return Page{}, fmt.Errorf("quote: company id required: %w", shared.ErrInvalidInput)
	}
	window := shared.NewPagination(page, perPage, 0)
	total, err := s.repo.CountByCompany(ctx, companyID)
	if err != nil {
		return Page{}, err
	}
	items, err := s.repo.ListByCompany(ctx, companyID, window.PerPage, window.Offset())
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []Quote{}
	}
	return Page{Items: items, Pagination: shared.NewPagination(window.Page, window.PerPage, total)}, nil
}

// RepriceQuote re-applies the current multiplier of the quote's profile. Overridden lines
// keep their price; internal costs and the payment plan follow the new totals.
func (s *Service) RepriceQuote(ctx context.Context, id uuid.UUID, expectedVersion int64) (Quote, error) {
	q, err := s.editable(ctx, id, expectedVersion)
	if err != nil {
		return Quote{}, err
	}
	if q.ProfileID == nil {
		return Quote{}, fmt.Errorf("quote: %s has no markup profile: %w", q.ID, shared.ErrInvalidInput)
	}
	profile, err := s.profiles.GetProfile(ctx, *q.ProfileID)
	if err != nil {
		return Quote{}, err
	}
	lines, err := RefreshLines(q.Lines, profile.Multiplier, profile.Label())
	if err != nil {
		return Quote{}, err
	}
	q.Lines = lines
	q.Multiplier = profile.Multiplier
	q.MarkupLabel = profile.Label()
	return s.store(ctx, q)
}

// LineEdit changes one stored line. Nil fields are left alone. BaseUnitPrice re-prices
// the line against its own multiplier and clears an override; SellUnitPrice is applied last.
type LineEdit struct {
	Quantity      *decimal.Decimal
	BaseUnitPrice *decimal.Decimal
	SellUnitPrice *decimal.Decimal
}

// UpdateLine edits one line of a stored quote and settles the totals again.
func (s *Service) UpdateLine(ctx context.Context, id uuid.UUID, sequence int, edit LineEdit, expectedVersion int64) (Quote, error) {
	q, err := s.editable(ctx, id, expectedVersion)
	if err != nil {
		return Quote{}, err
	}
	idx := -1
	for i, line := range q.Lines {
		if line.SequenceNumber == sequence {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Quote{}, fmt.Errorf("quote: %s line %d: %w", q.ID, sequence, shared.ErrNotFound)
	}
	line := q.Lines[idx]
	if edit.Quantity != nil {
		if line, err = line.WithQuantity(*edit.Quantity); err != nil {
			return Quote{}, err
		}
	}
	if edit.BaseUnitPrice != nil {
		if line, err = line.WithBasePrice(*edit.BaseUnitPrice); err != nil {
			return Quote{}, err
		}
	}
	if edit.SellUnitPrice != nil {
		if line, err = line.OverrideSellPrice(*edit.SellUnitPrice); err != nil {
			return Quote{}, err
		}
	}
	lines := append([]LineItem(nil), q.Lines...)
	lines[idx] = line
	q.Lines = lines
	return s.store(ctx, q)
}

// RemoveLine deletes one line and renumbers the rest. The last line cannot be removed.
func (s *Service) RemoveLine(ctx context.Context, id uuid.UUID, sequence int, expectedVersion int64) (Quote, error) {
	q, err := s.editable(ctx, id, expectedVersion)
	if err != nil {
		return Quote{}, err
	}
	lines, err := RemoveLine(q.Lines, sequence)
	if err != nil {
		return Quote{}, err
	}
	if len(lines) == 0 {
		return Quote{}, fmt.Errorf("quote: %s needs at least one line: %w", q.ID, shared.ErrInvalidInput)
	}
	q.Lines = lines
	return s.store(ctx, q)
}

func (s *Service) editable(ctx context.Context, id uuid.UUID, expectedVersion int64) (Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if expectedVersion != 0 && expectedVersion != q.Version {
		return Quote{}, fmt.Errorf("quote: %s is at version %d, not %d: %w", q.ID, q.Version, expectedVersion, shared.ErrConflict)
	}
	return q, nil
}

func (s *Service) store(ctx context.Context, q Quote) (Quote, error) {
	q.UpdatedAt = s.now().UTC()
	if err := s.settle(&q); err != nil {
		return Quote{}, err
	}
	s.observeLines(q.Lines)
	return s.repo.Update(ctx, q)
}

// settle recomputes internal costs, totals and the payment plan from q's lines.
func (s *Service) settle(q *Quote) error {
	agg, err := AggregateInternalCosts(q.HiddenCosts, q.InternalMaterials, q.Multiplier)
	if err != nil {
		return err
	}
	q.InternalCosts = agg
	linesTotal := SumLines(q.Lines)
	q.Totals = Totals{
		LinesTotal:             linesTotal,
		InternalCostTotal:      agg.TotalCost,
		InternalPriceTotal:     agg.TotalPrice,
		InternalDisclosedPrice: agg.ClientVisiblePrice,
		GrandTotal:             linesTotal.Add(agg.TotalPrice),
	}
	q.PaymentPlan = nil
	if q.PaymentConfig != nil {
		plan, err := s.BuildPaymentPlan(q.Totals.GrandTotal, *q.PaymentConfig)
		if err != nil {
			return err
		}
		q.PaymentPlan = &plan
	}
	return nil
}

func (s *Service) profileFor(ctx context.Context, in PriceQuoteInput) (markup.Profile, error) {
	var (
		profile markup.Profile
		err     error
	)
	if in.ProfileID != 0 {
		profile, err = s.profiles.GetProfile(ctx, in.ProfileID)
	} else {
		profile, err = s.profiles.GetProfileByPeriod(ctx, in.CompanyID, in.Period)
	}
	if err != nil {
		return markup.Profile{}, err
	}
	if profile.CompanyID != in.CompanyID {
		return markup.Profile{}, fmt.Errorf("quote: profile %d: %w", profile.ID, shared.ErrNotFound)
	}
	if !profile.Multiplier.IsPositive() {
		return markup.Profile{}, fmt.Errorf("quote: profile %s has no multiplier: %w", profile.Period.Label(), shared.ErrInvalidInput)
	}
	return profile, nil
}

// resolveCatalog fills base price, unit and description of catalog-referenced lines
// from the catalog. Explicit values on the input win.
func (s *Service) resolveCatalog(ctx context.Context, companyID int64, inputs []LineInput) ([]LineInput, error) {
	var ids []int64
	for _, in := range inputs {
		if in.CatalogReferenceID != nil {
			ids = append(ids, *in.CatalogReferenceID)
		}
	}
	out := make([]LineInput, len(inputs))
	copy(out, inputs)
	if len(ids) == 0 {
		return out, nil
	}
	if s.catalog == nil {
		return nil, errors.New("quote: catalog lookups not configured")
	}
	items, err := s.catalog.ListByIDs(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		ref := out[i].CatalogReferenceID
		if ref == nil {
			continue
		}
		item, ok := items[*ref]
		if !ok {
			return nil, fmt.Errorf("quote: line %d: catalog item %d: %w", i+1, *ref, shared.ErrNotFound)
		}
		if out[i].BaseUnitPrice == nil {
			price := item.BaseUnitPrice
			out[i].BaseUnitPrice = &price
		}
		if out[i].Description == "" {
			out[i].Description = item.Description
		}
		if out[i].UnitOfMeasure == "" {
			out[i].UnitOfMeasure = item.UnitOfMeasure
		}
	}
	return out, nil
}

func (s *Service) observeLines(lines []LineItem) {
	s.metrics.AddLinesPriced(len(lines))
	for _, line := range lines {
		if line.ManuallyOverridden {
			s.metrics.ObserveOverride()
		}
	}
}
