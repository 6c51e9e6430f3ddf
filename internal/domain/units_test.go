package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaseToUnits(t *testing.T) {
	require.Equal(t, 48, CaseToUnits(2, 24))
	require.Equal(t, 3, CaseToUnits(3, 0))
}

func TestUnitCostFromCase(t *testing.T) {
	require.Equal(t, int64(8000), UnitCostFromCase(192000, 24))
	require.Equal(t, int64(3334), UnitCostFromCase(10001, 3))
	require.Equal(t, int64(50000), UnitCostFromCase(50000, 0))
}

func TestProductDerivedStock(t *testing.T) {
	p := Product{StockQuantity: 50, MinStockLevel: 10, UnitsPerCase: 24, SellingPrice: 12000, CostPrice: 8000}
	require.Equal(t, 2, p.StockInCases())
	require.Equal(t, 2, p.StockRemainder())
	require.False(t, p.IsLowStock())
	require.Equal(t, int64(4000), p.ProfitMargin())

	p.StockQuantity = 10
	require.True(t, p.IsLowStock())

	view := NewProductView(p)
	require.True(t, view.IsLowStock)
	require.Equal(t, 0, view.StockInCases)
	require.Equal(t, 10, view.StockRemainder)
}
