package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/precifica/internal/shared"
)

// Repository looks up catalog items.
type Repository interface {
	Get(ctx context.Context, companyID, id int64) (Item, error)
	ListByIDs(ctx context.Context, companyID int64, ids []int64) (map[int64]Item, error)
	Upsert(ctx context.Context, item Item) (Item, error)
}

const itemColumns = `id, company_id, code, description, unit_of_measure, category, base_unit_price, is_active`

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Item, error) {
	query := `SELECT ` + itemColumns + ` FROM catalog_items WHERE company_id = $1 AND id = $2`
	item, err := scanItem(r.db.QueryRow(ctx, query, companyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("catalog: item %d: %w", id, shared.ErrNotFound)
	}
	return item, err
}

func (r *repository) ListByIDs(ctx context.Context, companyID int64, ids []int64) (map[int64]Item, error) {
	items := make(map[int64]Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	query := `SELECT ` + itemColumns + ` FROM catalog_items WHERE company_id = $1 AND id = ANY($2)`
	rows, err := r.db.Query(ctx, query, companyID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items[item.ID] = item
	}
	return items, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, item Item) (Item, error) {
	item = item.Normalized()
	if err := item.Validate(); err != nil {
		return Item{}, err
	}
	query := `INSERT INTO catalog_items (company_id, code, description, unit_of_measure, category, base_unit_price, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (company_id, code) DO UPDATE SET
	description = EXCLUDED.description,
	unit_of_measure = EXCLUDED.unit_of_measure,
	category = EXCLUDED.category,
	base_unit_price = EXCLUDED.base_unit_price,
	is_active = EXCLUDED.is_active
RETURNING ` + itemColumns
	return scanItem(r.db.QueryRow(ctx, query, item.CompanyID, item.Code, item.Description,
		item.UnitOfMeasure, item.Category, item.BaseUnitPrice, item.IsActive))
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.CompanyID, &it.Code, &it.Description, &it.UnitOfMeasure,
		&it.Category, &it.BaseUnitPrice, &it.IsActive)
	return it, err
}
