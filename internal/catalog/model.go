// Package catalog reads the service and material price list used to price quote lines.
package catalog

import (
	"github.com/shopspring/decimal"
)

// Category values used by the price list.
const (
	CategoryService  = "service"
	CategoryMaterial = "material"
)

// Item is one priced catalog entry. BaseUnitPrice is PU1, before markup.
type Item struct {
	ID            int64           `json:"id"`
	CompanyID     int64           `json:"company_id"`
	Code          string          `json:"code"`
	Description   string          `json:"description"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	Category      string          `json:"category"`
	BaseUnitPrice decimal.Decimal `json:"base_unit_price"`
	IsActive      bool            `json:"is_active"`
}
