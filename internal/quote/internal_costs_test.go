package quote

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/precifica/internal/shared"
)

func TestAggregateInternalCosts(t *testing.T) {
	hidden := []HiddenCost{
		{Label: "Freight", Value: dec("50"), ApplyMarkup: true, VisibleToClient: true},
		{Label: "Admin", Value: dec("20")},
	}
	materials := []InternalUseMaterial{
		{CatalogMaterialID: 9, Description: "Tape", Quantity: dec("3"), UnitCost: dec("2.333"), ApplyMarkup: true},
	}

	agg, err := AggregateInternalCosts(hidden, materials, dec("1.5"))
	require.NoError(t, err)
	require.Equal(t, "77.00", agg.TotalCost.StringFixed(2))
	require.Equal(t, "105.50", agg.TotalPrice.StringFixed(2))
	require.Equal(t, "75.00", agg.ClientVisiblePrice.StringFixed(2))

	require.Len(t, agg.Breakdown, 2)
	require.Equal(t, CategoryHiddenCosts, agg.Breakdown[0].Category)
	require.Equal(t, "70.00", agg.Breakdown[0].Cost.StringFixed(2))
	require.Equal(t, "95.00", agg.Breakdown[0].Price.StringFixed(2))
	require.Equal(t, CategoryInternalMaterials, agg.Breakdown[1].Category)
	require.Equal(t, "7.00", agg.Breakdown[1].Cost.StringFixed(2))
	require.Equal(t, "10.50", agg.Breakdown[1].Price.StringFixed(2))
	require.True(t, agg.Breakdown[1].ClientVisiblePrice.IsZero())
}

func TestAggregateInternalCostsEmpty(t *testing.T) {
	agg, err := AggregateInternalCosts(nil, nil, dec("1.4"))
	require.NoError(t, err)
	require.True(t, agg.TotalCost.IsZero())
	require.True(t, agg.TotalPrice.IsZero())
	require.Len(t, agg.Breakdown, 2)
}

func TestAggregateInternalCostsRejectsNegatives(t *testing.T) {
	_, err := AggregateInternalCosts([]HiddenCost{{Value: dec("-1")}}, nil, dec("1.2"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = AggregateInternalCosts(nil, []InternalUseMaterial{{Quantity: dec("1"), UnitCost: dec("-3")}}, dec("1.2"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = AggregateInternalCosts(nil, nil, dec("-1"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestAggregateInternalCostsRoundsHiddenCostsToCents(t *testing.T) {
	agg, err := AggregateInternalCosts([]HiddenCost{
		{Label: "Toll", Value: dec("10.005")},
		{Label: "Parking", Value: dec("4.004"), ApplyMarkup: true},
	}, nil, dec("1.5"))
	require.NoError(t, err)
	require.Equal(t, "14.01", agg.TotalCost.String())
	require.Equal(t, "16.01", agg.TotalPrice.String())
	require.Equal(t, int32(-2), agg.TotalPrice.Exponent())
}
