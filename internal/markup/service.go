package markup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/precifica/internal/history"
	"github.com/odyssey-erp/precifica/internal/observability"
	"github.com/odyssey-erp/precifica/internal/shared"
)

// Repository persists markup profiles. Update must fail with shared.ErrConflict when
// the stored version differs from p.Version.
type Repository interface {
	Get(ctx context.Context, id int64) (Profile, error)
	GetByPeriod(ctx context.Context, companyID int64, period shared.Period) (Profile, error)
	List(ctx context.Context, companyID int64) ([]Profile, error)
	ListOpenByMode(ctx context.Context, mode Mode, period shared.Period) ([]Profile, error)
	Insert(ctx context.Context, p Profile) (Profile, error)
	Update(ctx context.Context, p Profile) (Profile, error)
}

// HistoricalResolver derives X_real for a company and period.
type HistoricalResolver interface {
	Resolve(ctx context.Context, companyID int64, period shared.Period) (history.Result, error)
}

// Service coordinates profile configuration, the lifecycle state machine and persistence.
type Service struct {
	repo     Repository
	resolver HistoricalResolver
	logger   *slog.Logger
	metrics  *observability.PricingMetrics
	now      func() time.Time
}

// NewService wires a Service. logger and metrics may be nil.
func NewService(repo Repository, resolver HistoricalResolver, logger *slog.Logger, metrics *observability.PricingMetrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Compute runs the calculator without touching any profile.
func (s *Service) Compute(rates RateInputs) (Result, error) {
	result, err := Compute(rates)
	s.metrics.ObserveComputation(string(ModeManual), err)
	return result, err
}

// ResolveHistorical exposes the historical ratio lookup.
func (s *Service) ResolveHistorical(ctx context.Context, companyID int64, period shared.Period) (history.Result, error) {
	if s.resolver == nil {
		return history.Result{}, fmt.Errorf("markup: historical resolver not configured: %w", shared.ErrNoReferenceData)
	}
	return s.resolver.Resolve(ctx, companyID, period)
}

// GetProfile loads a profile by id.
func (s *Service) GetProfile(ctx context.Context, id int64) (Profile, error) {
	return s.repo.Get(ctx, id)
}

// GetProfileByPeriod loads the profile of a company for one month.
func (s *Service) GetProfileByPeriod(ctx context.Context, companyID int64, period shared.Period) (Profile, error) {
	if err := period.Validate(); err != nil {
		return Profile{}, err
	}
	return s.repo.GetByPeriod(ctx, companyID, period)
}

// ListProfiles returns every profile of a company, newest period first.
func (s *Service) ListProfiles(ctx context.Context, companyID int64) ([]Profile, error) {
	return s.repo.List(ctx, companyID)
}

// ListOpenHistorical returns the OPEN AUTO_HISTORICAL profiles of a period.
func (s *Service) ListOpenHistorical(ctx context.Context, period shared.Period) ([]Profile, error) {
	return s.repo.ListOpenByMode(ctx, ModeAutoHistorical, period)
}

// ConfigureManual creates or updates the period's profile from user-entered rates.
func (s *Service) ConfigureManual(ctx context.Context, in ConfigureManualInput) (Profile, error) {
	profile, err := s.loadOrNew(ctx, in.CompanyID, in.Period, in.ExpectedVersion)
	if err != nil {
		return Profile{}, err
	}
	err = profile.ApplySource(ManualSource{Rates: in.Rates})
	s.metrics.ObserveComputation(string(ModeManual), err)
	if err != nil {
		return Profile{}, err
	}
	if in.Notes != nil {
		profile.Notes = *in.Notes
	}
	return s.save(ctx, profile)
}

// ConfigureHistorical creates or updates the period's profile with the indirect rate
// derived from the ledger. A resolver failure is returned untouched so the caller can
// fall back to manual entry; the stored profile is not modified.
func (s *Service) ConfigureHistorical(ctx context.Context, in ConfigureHistoricalInput) (Profile, error) {
	profile, err := s.loadOrNew(ctx, in.CompanyID, in.Period, in.ExpectedVersion)
	if err != nil {
		return Profile{}, err
	}
	if profile.IsClosed() {
		return Profile{}, fmt.Errorf("markup: profile %s: %w", profile.Period.Label(), shared.ErrPeriodClosed)
	}
	base := RateInputs{Taxes: in.Taxes, FinancialRate: in.FinancialRate, ProfitRate: in.ProfitRate}
	src, err := s.historicalSource(ctx, in.CompanyID, in.Period, base)
	if err != nil {
		return Profile{}, err
	}
	err = profile.ApplySource(src)
	s.metrics.ObserveComputation(string(ModeAutoHistorical), err)
	if err != nil {
		return Profile{}, err
	}
	if in.Notes != nil {
		profile.Notes = *in.Notes
	}
	return s.save(ctx, profile)
}

// MoveProfilePeriod changes the month of an open profile. AUTO_HISTORICAL profiles are
// re-derived against the new period.
func (s *Service) MoveProfilePeriod(ctx context.Context, in MovePeriodInput) (Profile, error) {
	profile, err := s.load(ctx, in.ID, in.ExpectedVersion)
	if err != nil {
		return Profile{}, err
	}
	if err := profile.SetPeriod(in.Period); err != nil {
		return Profile{}, err
	}
	if profile.Mode == ModeAutoHistorical {
		src, err := s.historicalSource(ctx, profile.CompanyID, profile.Period, profile.Rates)
		if err != nil {
			return Profile{}, err
		}
		if err := profile.ApplySource(src); err != nil {
			return Profile{}, err
		}
	}
	return s.save(ctx, profile)
}

// UpdateNotes replaces the notes of an open profile.
func (s *Service) UpdateNotes(ctx context.Context, in UpdateNotesInput) (Profile, error) {
	profile, err := s.load(ctx, in.ID, in.ExpectedVersion)
	if err != nil {
		return Profile{}, err
	}
	if err := profile.SetNotes(in.Notes); err != nil {
		return Profile{}, err
	}
	return s.save(ctx, profile)
}

// CloseProfile freezes a persisted OPEN profile.
func (s *Service) CloseProfile(ctx context.Context, id int64) (Profile, error) {
	if id == 0 {
		return Profile{}, fmt.Errorf("markup: close: %w", shared.ErrProfileNotSaved)
	}
	profile, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if err := profile.Close(s.now().UTC()); err != nil {
		return Profile{}, err
	}
	saved, err := s.save(ctx, profile)
	if err != nil {
		return Profile{}, err
	}
	s.logger.Info("markup profile closed",
		slog.Int64("profile_id", saved.ID),
		slog.Int64("company_id", saved.CompanyID),
		slog.String("period", saved.Period.Key()),
	)
	return saved, nil
}

// ReopenProfile unfreezes a CLOSED profile. Quotes already priced keep their snapshot.
func (s *Service) ReopenProfile(ctx context.Context, id int64) (Profile, error) {
	profile, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if err := profile.Reopen(); err != nil {
		return Profile{}, err
	}
	saved, err := s.save(ctx, profile)
	if err != nil {
		return Profile{}, err
	}
	s.logger.Info("markup profile reopened",
		slog.Int64("profile_id", saved.ID),
		slog.Int64("company_id", saved.CompanyID),
		slog.String("period", saved.Period.Key()),
	)
	return saved, nil
}

// RefreshHistorical re-derives an AUTO_HISTORICAL profile from the current ledger. It
// reports whether anything changed; unchanged profiles are not written.
func (s *Service) RefreshHistorical(ctx context.Context, profile Profile) (bool, error) {
	if profile.Mode != ModeAutoHistorical {
		return false, fmt.Errorf("markup: refresh profile %d: mode %s: %w", profile.ID, profile.Mode, shared.ErrInvalidInput)
	}
	if profile.IsClosed() {
		return false, fmt.Errorf("markup: refresh profile %d: %w", profile.ID, shared.ErrPeriodClosed)
	}
	src, err := s.historicalSource(ctx, profile.CompanyID, profile.Period, profile.Rates)
	if err != nil {
		return false, err
	}
	before := profile.Rates
	if err := profile.ApplySource(src); err != nil {
		return false, err
	}
	if ratesEqual(before, profile.Rates) {
		return false, nil
	}
	if _, err := s.save(ctx, profile); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) historicalSource(ctx context.Context, companyID int64, period shared.Period, base RateInputs) (HistoricalSource, error) {
	result, err := s.ResolveHistorical(ctx, companyID, period)
	if err != nil {
		if errors.Is(err, shared.ErrNoReferenceData) {
			s.logger.Warn("historical markup unavailable; manual rates required",
				slog.Int64("company_id", companyID),
				slog.String("period", period.Key()),
				slog.Any("error", err),
			)
		}
		return HistoricalSource{}, err
	}
	return HistoricalSource{
		Base: base,
		Derivation: AutoDerivation{
			AppliedRatio:          result.Ratio,
			ReferencePeriod:       result.ReferencePeriod,
			IndirectExpensesTotal: result.IndirectExpensesTotal,
			RevenueBase:           result.RevenueBase,
			CategoriesUsed:        result.CategoriesUsed,
			Warning:               result.Warning,
			ComputedAt:            result.ComputedAt,
		},
	}, nil
}

func (s *Service) loadOrNew(ctx context.Context, companyID int64, period shared.Period, expectedVersion int64) (Profile, error) {
	if companyID <= 0 {
		return Profile{}, fmt.Errorf("markup: company id required: %w", shared.ErrInvalidInput)
	}
	if err := period.Validate(); err != nil {
		return Profile{}, err
	}
	profile, err := s.repo.GetByPeriod(ctx, companyID, period)
	if errors.Is(err, shared.ErrNotFound) {
		if expectedVersion != 0 {
			return Profile{}, fmt.Errorf("markup: profile %s no longer exists: %w", period.Label(), shared.ErrConflict)
		}
		return NewProfile(companyID, period), nil
	}
	if err != nil {
		return Profile{}, err
	}
	if err := checkVersion(profile, expectedVersion); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (s *Service) load(ctx context.Context, id, expectedVersion int64) (Profile, error) {
	profile, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if err := checkVersion(profile, expectedVersion); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (s *Service) save(ctx context.Context, profile Profile) (Profile, error) {
	if profile.ID == 0 {
		return s.repo.Insert(ctx, profile)
	}
	return s.repo.Update(ctx, profile)
}

func checkVersion(p Profile, expected int64) error {
	if expected != 0 && expected != p.Version {
		return fmt.Errorf("markup: profile %d is at version %d, not %d: %w", p.ID, p.Version, expected, shared.ErrConflict)
	}
	return nil
}
