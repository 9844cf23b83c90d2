package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestGetPrice(t *testing.T) {
	c := NewCatalog()

	q, ok := c.GetPrice("AAPL")
	require.True(t, ok)
	require.Equal(t, "Apple Inc.", q.CompanyName)
	require.True(t, q.CurrentPrice.Equal(decimal.NewFromInt(175)))

	// Lookup is case-insensitive.
	q, ok = c.GetPrice("nvda")
	require.True(t, ok)
	require.Equal(t, "NVDA", q.Symbol)

	_, ok = c.GetPrice("ZZZZ")
	require.False(t, ok)
}

func TestAllSortedBySymbol(t *testing.T) {
	all := NewCatalog().All()
	require.Len(t, all, 8)
	for i := 0; i < len(all)-1; i++ {
		require.Less(t, all[i].Symbol, all[i+1].Symbol)
	}
}

func TestSearch(t *testing.T) {
	c := NewCatalog()

	results := c.Search("apple")
	require.Len(t, results, 1)
	require.Equal(t, "AAPL", results[0].Symbol)

	// Symbol substring matches too.
	results = c.Search("ms")
	require.Len(t, results, 1)
	require.Equal(t, "MSFT", results[0].Symbol)

	results = c.Search("inc")
	require.NotEmpty(t, results)

	require.Empty(t, c.Search("xyzzy"))
	require.Empty(t, c.Search("   "))
}
