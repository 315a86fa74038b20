package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/precifica/internal/payment"
	"github.com/odyssey-erp/precifica/internal/shared"
)

const quoteColumns = `id, company_id, profile_id, customer_name, multiplier, markup_label, lines,
hidden_costs, internal_materials, internal_costs, payment_config, totals, payment_plan,
version, created_at, updated_at`

// PGRepository stores quotes in the quotes table. Lines and cost entries are kept as
// JSONB snapshots.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Get implements Repository.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, fmt.Errorf("quote: %s: %w", id, shared.ErrNotFound)
	}
	return q, err
}

// CountByCompany implements Repository.
func (r *PGRepository) CountByCompany(ctx context.Context, companyID int64) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotes WHERE company_id = $1`, companyID).Scan(&total)
	return total, err
}

// ListByCompany implements Repository.
func (r *PGRepository) ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]Quote, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+quoteColumns+` FROM quotes
WHERE company_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var quotes []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// Insert implements Repository.
func (r *PGRepository) Insert(ctx context.Context, q Quote) (Quote, error) {
	doc, err := encodeQuote(q)
	if err != nil {
		return Quote{}, err
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO quotes (
id, company_id, profile_id, customer_name, multiplier, markup_label, lines, hidden_costs,
internal_materials, internal_costs, payment_config, totals, payment_plan, grand_total,
version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, $15, $16)
RETURNING `+quoteColumns,
		q.ID, q.CompanyID, q.ProfileID, q.CustomerName, q.Multiplier, q.MarkupLabel, doc.lines,
		doc.hidden, doc.materials, doc.internal, doc.config, doc.totals, doc.plan,
		q.Totals.GrandTotal, q.CreatedAt, q.UpdatedAt,
	)
	return scanQuote(row)
}

// Update implements Repository using the version column as an optimistic lock.
func (r *PGRepository) Update(ctx context.Context, q Quote) (Quote, error) {
	doc, err := encodeQuote(q)
	if err != nil {
		return Quote{}, err
	}
	row := r.pool.QueryRow(ctx, `UPDATE quotes SET
multiplier = $3, markup_label = $4, lines = $5, hidden_costs = $6, internal_materials = $7,
internal_costs = $8, payment_config = $9, totals = $10, payment_plan = $11, grand_total = $12,
customer_name = $13, version = version + 1, updated_at = $14
WHERE id = $1 AND version = $2
RETURNING `+quoteColumns,
		q.ID, q.Version, q.Multiplier, q.MarkupLabel, doc.lines, doc.hidden, doc.materials,
		doc.internal, doc.config, doc.totals, doc.plan, q.Totals.GrandTotal, q.CustomerName,
		time.Now().UTC(),
	)
	saved, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quotes WHERE id = $1)`, q.ID).Scan(&exists); err != nil {
			return Quote{}, err
		}
		if !exists {
			return Quote{}, fmt.Errorf("quote: %s: %w", q.ID, shared.ErrNotFound)
		}
		return Quote{}, fmt.Errorf("quote: %s changed since version %d: %w", q.ID, q.Version, shared.ErrConflict)
	}
	return saved, err
}

type quoteDoc struct {
	lines, hidden, materials, internal, config, totals, plan []byte
}

func encodeQuote(q Quote) (quoteDoc, error) {
	var (
		doc quoteDoc
		err error
	)
	fields := []struct {
		dst *[]byte
		v   any
	}{
		{&doc.lines, nonNil(q.Lines)},
		{&doc.hidden, nonNil(q.HiddenCosts)},
		{&doc.materials, nonNil(q.InternalMaterials)},
		{&doc.internal, q.InternalCosts},
		{&doc.totals, q.Totals},
	}
	for _, f := range fields {
		if *f.dst, err = json.Marshal(f.v); err != nil {
			return quoteDoc{}, fmt.Errorf("quote: encode %s: %w", q.ID, err)
		}
	}
	if q.PaymentConfig != nil {
		if doc.config, err = json.Marshal(q.PaymentConfig); err != nil {
			return quoteDoc{}, fmt.Errorf("quote: encode payment config: %w", err)
		}
	}
	if q.PaymentPlan != nil {
		if doc.plan, err = json.Marshal(q.PaymentPlan); err != nil {
			return quoteDoc{}, fmt.Errorf("quote: encode payment plan: %w", err)
		}
	}
	return doc, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func scanQuote(row pgx.Row) (Quote, error) {
	var (
		q   Quote
		doc quoteDoc
	)
	err := row.Scan(
		&q.ID, &q.CompanyID, &q.ProfileID, &q.CustomerName, &q.Multiplier, &q.MarkupLabel,
		&doc.lines, &doc.hidden, &doc.materials, &doc.internal, &doc.config, &doc.totals, &doc.plan,
		&q.Version, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return Quote{}, err
	}
	decode := func(raw []byte, v any) error {
		if len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("quote: decode %s: %w", q.ID, err)
		}
		return nil
	}
	for _, f := range []struct {
		raw []byte
		v   any
	}{
		{doc.lines, &q.Lines},
		{doc.hidden, &q.HiddenCosts},
		{doc.materials, &q.InternalMaterials},
		{doc.internal, &q.InternalCosts},
		{doc.totals, &q.Totals},
	} {
		if err := decode(f.raw, f.v); err != nil {
			return Quote{}, err
		}
	}
	if len(doc.config) > 0 {
		var cfg payment.Config
		if err := decode(doc.config, &cfg); err != nil {
			return Quote{}, err
		}
		q.PaymentConfig = &cfg
	}
	if len(doc.plan) > 0 {
		var plan payment.Plan
		if err := decode(doc.plan, &plan); err != nil {
			return Quote{}, err
		}
		q.PaymentPlan = &plan
	}
	return q, nil
}
