package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
)

var _ store.Repository = (*Store)(nil)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("FPTMART_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set FPTMART_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestCancelSaleRestocksInventory(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	product, err := s.CreateProduct(ctx, domain.Product{
		ProductCode:   fmt.Sprintf("IT%d", stamp),
		Name:          "Sản phẩm kiểm thử",
		CategoryID:    "cat-001",
		SellingPrice:  12000,
		StockQuantity: 10,
		MinStockLevel: 2,
		UnitsPerCase:  6,
		CaseUnit:      domain.DefaultCaseUnit,
		Unit:          domain.DefaultUnit,
	})
	require.NoError(t, err)

	sale, err := s.CreateSale(ctx, domain.Sale{
		UserID:        "usr-admin",
		PaymentMethod: domain.PaymentCash,
		SubTotal:      24000,
		TotalAmount:   24000,
		PaidAmount:    30000,
		ChangeAmount:  6000,
		Items: []domain.SaleItem{{
			ProductID:   product.ID,
			ProductCode: product.ProductCode,
			ProductName: product.Name,
			Quantity:    2,
			UnitPrice:   12000,
			TotalPrice:  24000,
		}},
	}, time.UTC)
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, sale.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, sale.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	})

	afterSale, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 8, afterSale.StockQuantity)

	cancelled, err := s.CancelSale(ctx, sale.ID, "integration test cancel", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, domain.SaleStatusCancelled, cancelled.Status)

	afterCancel, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 10, afterCancel.StockQuantity)

	_, err = s.CancelSale(ctx, sale.ID, "twice", time.Now().UTC())
	require.ErrorIs(t, err, store.ErrInvalidState)
}

func TestCreateStockInUpdatesCost(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, domain.Product{
		Name:         fmt.Sprintf("Nhập kho %d", time.Now().UnixNano()),
		CategoryID:   "cat-003",
		SellingPrice: 5000,
		UnitsPerCase: 30,
		CaseUnit:     domain.DefaultCaseUnit,
		Unit:         "Gói",
	})
	require.NoError(t, err)

	stockIn, err := s.CreateStockIn(ctx, domain.StockIn{
		UserID: "usr-admin",
		Items:  []domain.StockInItem{{ProductID: product.ID, CaseQuantity: 2, CaseCost: 100000}},
	}, time.UTC)
	require.NoError(t, err)
	require.Equal(t, int64(200000), stockIn.TotalAmount)
	require.Equal(t, 2, stockIn.TotalCases)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stock_in_items WHERE stock_in_id = $1`, stockIn.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stock_ins WHERE id = $1`, stockIn.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	})

	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 60, got.StockQuantity)
	require.Equal(t, int64(3333), got.CostPrice)
}
