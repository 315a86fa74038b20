package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/precifica/internal/shared"
)

func TestItemValidate(t *testing.T) {
	valid := Item{
		CompanyID:     1,
		Code:          "SRV-001",
		Description:   "Wall painting",
		UnitOfMeasure: "m2",
		Category:      CategoryService,
		BaseUnitPrice: decimal.NewFromInt(25),
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(*Item){
		"missing company":  func(it *Item) { it.CompanyID = 0 },
		"blank code":       func(it *Item) { it.Code = "  " },
		"blank name":       func(it *Item) { it.Description = "" },
		"negative price":   func(it *Item) { it.BaseUnitPrice = decimal.NewFromInt(-1) },
		"unknown category": func(it *Item) { it.Category = "labour" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			it := valid
			mutate(&it)
			require.ErrorIs(t, it.Validate(), shared.ErrInvalidInput)
		})
	}
}

func TestItemNormalized(t *testing.T) {
	decomposed := "Tubulac\u0327a\u0303o"
	it := Item{Code: " srv-002 ", Description: decomposed + " ", UnitOfMeasure: " M2"}.Normalized()

	require.Equal(t, "SRV-002", it.Code)
	require.Equal(t, "Tubula\u00e7\u00e3o", it.Description)
	require.Equal(t, "m2", it.UnitOfMeasure)
}
