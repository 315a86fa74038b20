package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFromDecimalRoundsHalfAwayFromZero(t *testing.T) {
	require.Equal(t, Cents(13928), FromDecimal(decimal.RequireFromString("139.28")))
	require.Equal(t, Cents(101), FromDecimal(decimal.RequireFromString("1.005")))
	require.Equal(t, Cents(100), FromDecimal(decimal.RequireFromString("1.004")))
	require.Equal(t, "417.84", Cents(41784).String())
	require.True(t, Cents(41784).Decimal().Equal(decimal.RequireFromString("417.84")))
}

func TestSplitPutsRemainderOnLast(t *testing.T) {
	parts, err := Cents(70000).Split(3)
	require.NoError(t, err)
	require.Equal(t, []Cents{23333, 23333, 23334}, parts)
	require.Equal(t, Cents(70000), Sum(parts...))

	parts, err = Cents(100).Split(7)
	require.NoError(t, err)
	require.Equal(t, Cents(14), parts[0])
	require.Equal(t, Cents(16), parts[6])
	require.Equal(t, Cents(100), Sum(parts...))

	_, err = Cents(100).Split(0)
	require.Error(t, err)
}
