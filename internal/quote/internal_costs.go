package quote

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/money"
)

// Breakdown categories.
const (
	CategoryHiddenCosts       = "hidden_costs"
	CategoryInternalMaterials = "internal_materials"
)

// HiddenCost is an indirect cost recovered through the quote.
type HiddenCost struct {
	Label           string          `json:"label"`
	Value           decimal.Decimal `json:"value"`
	ApplyMarkup     bool            `json:"apply_markup"`
	VisibleToClient bool            `json:"visible_to_client"`
}

// TotalCost is the value rounded to cents.
func (h HiddenCost) TotalCost() decimal.Decimal {
	return money.Round2(h.Value)
}

// InternalUseMaterial is a material consumed by the job but not sold as a line.
type InternalUseMaterial struct {
	CatalogMaterialID int64           `json:"catalog_material_id"`
	Description       string          `json:"description"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	ApplyMarkup       bool            `json:"apply_markup"`
	VisibleToClient   bool            `json:"visible_to_client"`
}

// TotalCost is quantity × unit cost rounded to cents.
func (m InternalUseMaterial) TotalCost() decimal.Decimal {
	return money.Round2(m.Quantity.Mul(m.UnitCost))
}

// CategoryTotal is one row of the internal cost breakdown.
type CategoryTotal struct {
	Category           string          `json:"category"`
	Cost               decimal.Decimal `json:"cost"`
	Price              decimal.Decimal `json:"price"`
	ClientVisiblePrice decimal.Decimal `json:"client_visible_price"`
}

// Aggregate is the folded internal cost result. TotalPrice is always charged;
// ClientVisiblePrice is the part that may be disclosed on the proposal.
type Aggregate struct {
	TotalCost          decimal.Decimal `json:"total_cost"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	ClientVisiblePrice decimal.Decimal `json:"client_visible_price"`
	Breakdown          []CategoryTotal `json:"breakdown"`
}

// AggregateInternalCosts folds hidden costs and internal materials. An entry's price is
// round2(cost × multiplier) when it applies markup and its cost otherwise.
func AggregateInternalCosts(hidden []HiddenCost, materials []InternalUseMaterial, multiplier decimal.Decimal) (Aggregate, error) {
	if err := nonNegative("multiplier", multiplier); err != nil {
		return Aggregate{}, err
	}
	hiddenRow := CategoryTotal{Category: CategoryHiddenCosts}
	for i, h := range hidden {
		if err := nonNegative(fmt.Sprintf("hidden cost %d value", i+1), h.Value); err != nil {
			return Aggregate{}, err
		}
		hiddenRow.add(h.TotalCost(), h.ApplyMarkup, h.VisibleToClient, multiplier)
	}
	materialRow := CategoryTotal{Category: CategoryInternalMaterials}
	for i, m := range materials {
		if err := nonNegative(fmt.Sprintf("internal material %d quantity", i+1), m.Quantity); err != nil {
			return Aggregate{}, err
		}
		if err := nonNegative(fmt.Sprintf("internal material %d unit cost", i+1), m.UnitCost); err != nil {
			return Aggregate{}, err
		}
		materialRow.add(m.TotalCost(), m.ApplyMarkup, m.VisibleToClient, multiplier)
	}
	rows := []CategoryTotal{hiddenRow, materialRow}
	agg := Aggregate{Breakdown: rows}
	for _, row := range rows {
		agg.TotalCost = agg.TotalCost.Add(row.Cost)
		agg.TotalPrice = agg.TotalPrice.Add(row.Price)
		agg.ClientVisiblePrice = agg.ClientVisiblePrice.Add(row.ClientVisiblePrice)
	}
	return agg, nil
}

func (c *CategoryTotal) add(cost decimal.Decimal, applyMarkup, visible bool, multiplier decimal.Decimal) {
	price := cost
	if applyMarkup {
		price = money.Round2(cost.Mul(multiplier))
	}
	c.Cost = c.Cost.Add(cost)
	c.Price = c.Price.Add(price)
	if visible {
		c.ClientVisiblePrice = c.ClientVisiblePrice.Add(price)
	}
}
