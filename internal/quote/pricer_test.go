package quote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/precifica/internal/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestPriceLine(t *testing.T) {
	cases := []struct {
		name       string
		base       string
		quantity   string
		multiplier string
		sell       string
		total      string
	}{
		{name: "catalog item at 1.3928", base: "100", quantity: "3", multiplier: "1.3928", sell: "139.28", total: "417.84"},
		{name: "half cent rounds away from zero", base: "33.33", quantity: "2.5", multiplier: "1.4547", sell: "48.49", total: "121.23"},
		{name: "zero quantity", base: "12.50", quantity: "0", multiplier: "1.2", sell: "15.00", total: "0.00"},
		{name: "zero base price", base: "0", quantity: "4", multiplier: "1.5", sell: "0.00", total: "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			priced, err := PriceLine(dec(tc.base), dec(tc.quantity), dec(tc.multiplier))
			require.NoError(t, err)
			require.Equal(t, tc.sell, priced.SellUnitPrice.StringFixed(2))
			require.Equal(t, tc.total, priced.LineTotal.StringFixed(2))

			again, err := PriceLine(dec(tc.base), dec(tc.quantity), dec(tc.multiplier))
			require.NoError(t, err)
			require.True(t, again.LineTotal.Equal(priced.LineTotal))
		})
	}
}

func TestPriceLineRejectsNegatives(t *testing.T) {
	_, err := PriceLine(dec("-1"), dec("1"), dec("1.2"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = PriceLine(dec("1"), dec("-1"), dec("1.2"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = PriceLine(dec("1"), dec("1"), dec("-1.2"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestLineEdits(t *testing.T) {
	line, err := NewLine(LineInput{Description: "Cable", Quantity: dec("3"), BaseUnitPrice: decPtr("100")}, dec("1.3928"), "Markup 03/2025 (1.3928)")
	require.NoError(t, err)
	require.Equal(t, "139.28", line.SellUnitPrice.StringFixed(2))
	require.Equal(t, "Markup 03/2025 (1.3928)", line.MarkupReferenceLabel)

	t.Run("quantity keeps the sell price", func(t *testing.T) {
		edited, err := line.WithQuantity(dec("5"))
		require.NoError(t, err)
		require.Equal(t, "139.28", edited.SellUnitPrice.StringFixed(2))
		require.Equal(t, "696.40", edited.LineTotal.StringFixed(2))
		require.Equal(t, "3", line.Quantity.String())
	})

	t.Run("override keeps references", func(t *testing.T) {
		overridden, err := line.OverrideSellPrice(dec("150"))
		require.NoError(t, err)
		require.True(t, overridden.ManuallyOverridden)
		require.Equal(t, "450.00", overridden.LineTotal.StringFixed(2))
		require.Equal(t, "100", overridden.BaseUnitPrice.String())
		require.Equal(t, "1.3928", overridden.MarkupMultiplierApplied.String())

		more, err := overridden.WithQuantity(dec("2"))
		require.NoError(t, err)
		require.True(t, more.ManuallyOverridden)
		require.Equal(t, "300.00", more.LineTotal.StringFixed(2))

		_, err = overridden.OverrideSellPrice(dec("-1"))
		require.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("base price re-derives and clears override", func(t *testing.T) {
		overridden, err := line.OverrideSellPrice(dec("150"))
		require.NoError(t, err)
		edited, err := overridden.WithBasePrice(dec("200"))
		require.NoError(t, err)
		require.False(t, edited.ManuallyOverridden)
		require.Equal(t, "278.56", edited.SellUnitPrice.StringFixed(2))
		require.Equal(t, "835.68", edited.LineTotal.StringFixed(2))
	})

	t.Run("multiplier re-derives", func(t *testing.T) {
		edited, err := line.WithMultiplier(dec("1.5"), "Markup 04/2025 (1.5000)")
		require.NoError(t, err)
		require.Equal(t, "150.00", edited.SellUnitPrice.StringFixed(2))
		require.Equal(t, "450.00", edited.LineTotal.StringFixed(2))
		require.Equal(t, "Markup 04/2025 (1.5000)", edited.MarkupReferenceLabel)
	})
}

func TestNewLineAppliesOverride(t *testing.T) {
	line, err := NewLine(LineInput{Quantity: dec("2"), BaseUnitPrice: decPtr("10"), OverrideSellPrice: decPtr("12.345")}, dec("1.5"), "m")
	require.NoError(t, err)
	require.True(t, line.ManuallyOverridden)
	require.Equal(t, "12.35", line.SellUnitPrice.StringFixed(2))
	require.Equal(t, "24.70", line.LineTotal.StringFixed(2))
}

func TestPriceLinesNumbersAndReportsLine(t *testing.T) {
	lines, err := PriceLines([]LineInput{
		{Description: "a", Quantity: dec("1"), BaseUnitPrice: decPtr("10")},
		{Description: "b", Quantity: dec("2"), BaseUnitPrice: decPtr("20")},
	}, dec("1.1"), "m")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, 1, lines[0].SequenceNumber)
	require.Equal(t, 2, lines[1].SequenceNumber)
	require.Equal(t, "55.00", SumLines(lines).StringFixed(2))

	_, err = PriceLines([]LineInput{
		{Description: "a", Quantity: dec("1"), BaseUnitPrice: decPtr("10")},
		{Description: "free text", Quantity: dec("1")},
	}, dec("1.1"), "m")
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	require.Contains(t, err.Error(), "line 2")
}

func TestRefreshLinesKeepsOverrides(t *testing.T) {
	lines, err := PriceLines([]LineInput{
		{Quantity: dec("1"), BaseUnitPrice: decPtr("100")},
		{Quantity: dec("1"), BaseUnitPrice: decPtr("100"), OverrideSellPrice: decPtr("120")},
	}, dec("1.3928"), "old")
	require.NoError(t, err)

	refreshed, err := RefreshLines(lines, dec("1.5"), "new")
	require.NoError(t, err)
	require.Equal(t, "150.00", refreshed[0].SellUnitPrice.StringFixed(2))
	require.Equal(t, "new", refreshed[0].MarkupReferenceLabel)
	require.Equal(t, lines[1], refreshed[1])
	require.Equal(t, "139.28", lines[0].SellUnitPrice.StringFixed(2), "input slice is not modified")
}

func TestRemoveLineRenumbers(t *testing.T) {
	var lines []LineItem
	for _, desc := range []string{"a", "b", "c"} {
		lines = AppendLine(lines, LineItem{Description: desc})
	}

	out, err := RemoveLine(lines, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].Description)
	require.Equal(t, 1, out[0].SequenceNumber)
	require.Equal(t, "c", out[1].Description)
	require.Equal(t, 2, out[1].SequenceNumber)

	_, err = RemoveLine(lines, 9)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
