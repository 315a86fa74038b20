package markup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/precifica/internal/platform/db"
	"github.com/odyssey-erp/precifica/internal/shared"
)

const profileColumns = `id, company_id, year, month, sales_tax_rate, service_tax_rate,
include_materials_in_service_tax_base, indirects_rate, financial_rate, profit_rate, mode,
auto_derivation, status, notes, multiplier, bdi_percent, version, closed_at, created_at, updated_at`

// PGRepository stores profiles in the markup_profiles table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Get implements Repository.
func (r *PGRepository) Get(ctx context.Context, id int64) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM markup_profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, fmt.Errorf("markup: profile %d: %w", id, shared.ErrNotFound)
	}
	return p, err
}

// GetByPeriod implements Repository.
func (r *PGRepository) GetByPeriod(ctx context.Context, companyID int64, period shared.Period) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM markup_profiles
WHERE company_id = $1 AND year = $2 AND month = $3`, companyID, period.Year, period.Month)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, fmt.Errorf("markup: profile %s for company %d: %w", period.Label(), companyID, shared.ErrNotFound)
	}
	return p, err
}

// List implements Repository.
func (r *PGRepository) List(ctx context.Context, companyID int64) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM markup_profiles
WHERE company_id = $1 ORDER BY year DESC, month DESC`, companyID)
	if err != nil {
		return nil, err
	}
	return collectProfiles(rows)
}

// ListOpenByMode implements Repository.
func (r *PGRepository) ListOpenByMode(ctx context.Context, mode Mode, period shared.Period) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM markup_profiles
WHERE status = 'OPEN' AND mode = $1 AND year = $2 AND month = $3 ORDER BY company_id`,
		string(mode), period.Year, period.Month)
	if err != nil {
		return nil, err
	}
	return collectProfiles(rows)
}

// Insert implements Repository. A second profile for the same company and month is a
// conflict.
func (r *PGRepository) Insert(ctx context.Context, p Profile) (Profile, error) {
	derivation, err := encodeDerivation(p.AutoDerivation)
	if err != nil {
		return Profile{}, err
	}
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `INSERT INTO markup_profiles (
company_id, year, month, sales_tax_rate, service_tax_rate, include_materials_in_service_tax_base,
indirects_rate, financial_rate, profit_rate, mode, auto_derivation, status, notes,
multiplier, bdi_percent, version, closed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16, $17, $17)
RETURNING `+profileColumns,
		p.CompanyID, p.Period.Year, p.Period.Month, p.Rates.Taxes.SalesTaxRate, p.Rates.Taxes.ServiceTaxRate,
		p.Rates.Taxes.IncludeMaterialsInServiceTaxBase, p.Rates.IndirectsRate, p.Rates.FinancialRate,
		p.Rates.ProfitRate, string(p.Mode), derivation, string(p.Status), p.Notes, p.Multiplier,
		p.BDIPercent, p.ClosedAt, now,
	)
	saved, err := scanProfile(row)
	if db.IsUniqueViolation(err) {
		return Profile{}, fmt.Errorf("markup: profile %s already exists for company %d: %w", p.Period.Label(), p.CompanyID, shared.ErrConflict)
	}
	return saved, err
}

// Update implements Repository using the version column as an optimistic lock.
func (r *PGRepository) Update(ctx context.Context, p Profile) (Profile, error) {
	derivation, err := encodeDerivation(p.AutoDerivation)
	if err != nil {
		return Profile{}, err
	}
	row := r.pool.QueryRow(ctx, `UPDATE markup_profiles SET
year = $3, month = $4, sales_tax_rate = $5, service_tax_rate = $6,
include_materials_in_service_tax_base = $7, indirects_rate = $8, financial_rate = $9,
profit_rate = $10, mode = $11, auto_derivation = $12, status = $13, notes = $14,
multiplier = $15, bdi_percent = $16, closed_at = $17, version = version + 1, updated_at = $18
WHERE id = $1 AND version = $2
RETURNING `+profileColumns,
		p.ID, p.Version, p.Period.Year, p.Period.Month, p.Rates.Taxes.SalesTaxRate,
		p.Rates.Taxes.ServiceTaxRate, p.Rates.Taxes.IncludeMaterialsInServiceTaxBase,
		p.Rates.IndirectsRate, p.Rates.FinancialRate, p.Rates.ProfitRate, string(p.Mode),
		derivation, string(p.Status), p.Notes, p.Multiplier, p.BDIPercent, p.ClosedAt,
		time.Now().UTC(),
	)
	saved, err := scanProfile(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM markup_profiles WHERE id = $1)`, p.ID).Scan(&exists); err != nil {
			return Profile{}, err
		}
		if !exists {
			return Profile{}, fmt.Errorf("markup: profile %d: %w", p.ID, shared.ErrNotFound)
		}
		return Profile{}, fmt.Errorf("markup: profile %d changed since version %d: %w", p.ID, p.Version, shared.ErrConflict)
	case db.IsUniqueViolation(err):
		return Profile{}, fmt.Errorf("markup: profile %s already exists for company %d: %w", p.Period.Label(), p.CompanyID, shared.ErrConflict)
	}
	return saved, err
}

func collectProfiles(rows pgx.Rows) ([]Profile, error) {
	defer rows.Close()
	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(row pgx.Row) (Profile, error) {
	var (
		p          Profile
		mode       string
		status     string
		derivation []byte
	)
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Period.Year, &p.Period.Month,
		&p.Rates.Taxes.SalesTaxRate, &p.Rates.Taxes.ServiceTaxRate, &p.Rates.Taxes.IncludeMaterialsInServiceTaxBase,
		&p.Rates.IndirectsRate, &p.Rates.FinancialRate, &p.Rates.ProfitRate,
		&mode, &derivation, &status, &p.Notes, &p.Multiplier, &p.BDIPercent,
		&p.Version, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}
	p.Mode = Mode(mode)
	p.Status = Status(status)
	if len(derivation) > 0 {
		var d AutoDerivation
		if err := json.Unmarshal(derivation, &d); err != nil {
			return Profile{}, fmt.Errorf("markup: decode auto derivation of profile %d: %w", p.ID, err)
		}
		p.AutoDerivation = &d
	}
	return p, nil
}

func encodeDerivation(d *AutoDerivation) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("markup: encode auto derivation: %w", err)
	}
	return raw, nil
}
