package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
)

var hcm = time.FixedZone("ICT", 7*60*60)

func saleOf(productID string, qty int, unitPrice int64) domain.Sale {
	total := domain.LineTotal(qty, unitPrice, 0)
	return domain.Sale{
		UserID:        "usr-admin",
		PaymentMethod: domain.PaymentCash,
		SubTotal:      total,
		TotalAmount:   total,
		PaidAmount:    total,
		Items: []domain.SaleItem{{
			ProductID:   productID,
			Quantity:    qty,
			UnitPrice:   unitPrice,
			TotalPrice:  total,
			ProductCode: "SP0001",
			ProductName: "Coca Cola 330ml",
		}},
	}
}

func TestCreateProductAssignsNextCode(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	created, err := s.CreateProduct(ctx, domain.Product{Name: "Bánh Oreo", CategoryID: "cat-002", SellingPrice: 15000, UnitsPerCase: 12})
	require.NoError(t, err)
	require.Equal(t, "SP0005", created.ProductCode)
	require.Equal(t, "Bánh kẹo", created.CategoryName)

	_, err = s.CreateProduct(ctx, domain.Product{ProductCode: "sp0001", Name: "Dup", CategoryID: "cat-002"})
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestListProductsAccentInsensitive(t *testing.T) {
	s := NewSeeded()

	products, err := s.ListProducts(context.Background(), domain.ProductFilter{Query: "sua"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "SP0004", products[0].ProductCode)

	products, err = s.ListProducts(context.Background(), domain.ProductFilter{Query: "8934563138165"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "SP0003", products[0].ProductCode)
}

func TestCreateSaleNumbersPerDayAndDecrementsStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	day := time.Date(2026, 3, 5, 9, 0, 0, 0, hcm)

	first := saleOf("prd-001", 2, 12000)
	first.SaleDate = day
	created, err := s.CreateSale(ctx, first, hcm)
	require.NoError(t, err)
	require.Equal(t, "HD-20260305-001", created.InvoiceNumber)
	require.Equal(t, domain.SaleStatusCompleted, created.Status)

	second := saleOf("prd-001", 1, 12000)
	second.SaleDate = day.Add(time.Hour)
	created, err = s.CreateSale(ctx, second, hcm)
	require.NoError(t, err)
	require.Equal(t, "HD-20260305-002", created.InvoiceNumber)

	nextDay := saleOf("prd-001", 1, 12000)
	nextDay.SaleDate = day.Add(24 * time.Hour)
	created, err = s.CreateSale(ctx, nextDay, hcm)
	require.NoError(t, err)
	require.Equal(t, "HD-20260306-001", created.InvoiceNumber)

	product, err := s.GetProduct(ctx, "prd-001")
	require.NoError(t, err)
	require.Equal(t, 96, product.StockQuantity)
}

func TestWithClockStampsRecords(t *testing.T) {
	at := time.Date(2026, 3, 5, 23, 30, 0, 0, hcm)
	s := NewSeeded(WithClock(func() time.Time { return at }))
	ctx := context.Background()

	product, err := s.GetProduct(ctx, "prd-001")
	require.NoError(t, err)
	require.True(t, product.CreatedAt.Equal(at))

	created, err := s.CreateSale(ctx, saleOf("prd-001", 1, 12000), hcm)
	require.NoError(t, err)
	require.True(t, created.SaleDate.Equal(at))
	require.Equal(t, "HD-20260305-001", created.InvoiceNumber)

	customer, err := s.CreateCustomer(ctx, domain.Customer{FullName: "Nguyễn Văn A", Phone: "0901234567"})
	require.NoError(t, err)
	require.True(t, customer.CreatedAt.Equal(at))
}

func TestCreateSaleRejectsShortStockAtomically(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := saleOf("prd-001", 60, 12000)
	sale.Items = append(sale.Items, domain.SaleItem{ProductID: "prd-001", Quantity: 50, UnitPrice: 12000, TotalPrice: 600000})
	_, err := s.CreateSale(ctx, sale, hcm)
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	product, err := s.GetProduct(ctx, "prd-001")
	require.NoError(t, err)
	require.Equal(t, 100, product.StockQuantity)
}

func TestCancelSaleRestoresStockAndCustomer(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	customer, err := s.CreateCustomer(ctx, domain.Customer{FullName: "Lê Văn C", Phone: "0901234567"})
	require.NoError(t, err)

	sale := saleOf("prd-001", 3, 12000)
	sale.CustomerID = &customer.ID
	created, err := s.CreateSale(ctx, sale, hcm)
	require.NoError(t, err)
	require.Equal(t, "Lê Văn C", created.CustomerName)

	got, err := s.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Equal(t, int64(36000), got.TotalPurchases)

	cancelled, err := s.CancelSale(ctx, created.ID, "khách đổi ý", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, domain.SaleStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	got, err = s.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Zero(t, got.TotalPurchases)

	product, err := s.GetProduct(ctx, "prd-001")
	require.NoError(t, err)
	require.Equal(t, 100, product.StockQuantity)

	_, err = s.CancelSale(ctx, created.ID, "again", time.Now().UTC())
	require.ErrorIs(t, err, store.ErrInvalidState)
}

func TestCreateStockInConvertsCases(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	supplierID := "sup-001"

	created, err := s.CreateStockIn(ctx, domain.StockIn{
		SupplierID:  &supplierID,
		UserID:      "usr-admin",
		StockInDate: time.Date(2026, 3, 5, 10, 0, 0, 0, hcm),
		Items: []domain.StockInItem{
			{ProductID: "prd-001", CaseQuantity: 2, CaseCost: 190000},
			{ProductID: "prd-003", CaseQuantity: 1, CaseCost: 100000},
		},
	}, hcm)
	require.NoError(t, err)
	require.Equal(t, "NK-20260305-001", created.StockInNumber)
	require.Equal(t, int64(480000), created.TotalAmount)
	require.Equal(t, 3, created.TotalCases)
	require.Equal(t, 48, created.Items[0].Quantity)
	require.Equal(t, int64(7917), created.Items[0].UnitCost)
	require.Equal(t, "Công ty TNHH Coca-Cola Việt Nam", created.SupplierName)

	coke, err := s.GetProduct(ctx, "prd-001")
	require.NoError(t, err)
	require.Equal(t, 148, coke.StockQuantity)
	require.Equal(t, int64(7917), coke.CostPrice)

	noodles, err := s.GetProduct(ctx, "prd-003")
	require.NoError(t, err)
	require.Equal(t, 230, noodles.StockQuantity)
	require.Equal(t, int64(3333), noodles.CostPrice)
}

func TestCreateAdjustmentNeverNegative(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	adj, err := s.CreateAdjustment(ctx, domain.InventoryAdjustment{ProductID: "prd-002", AdjustmentType: domain.AdjustmentDamage, QuantityChange: -5, UserID: "usr-admin"})
	require.NoError(t, err)
	require.Equal(t, 75, adj.StockAfter)

	_, err = s.CreateAdjustment(ctx, domain.InventoryAdjustment{ProductID: "prd-002", AdjustmentType: domain.AdjustmentCorrection, QuantityChange: -76})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	adj, err = s.CreateAdjustment(ctx, domain.InventoryAdjustment{ProductID: "prd-002", AdjustmentType: domain.AdjustmentCorrection, QuantityChange: -75})
	require.NoError(t, err)
	require.Zero(t, adj.StockAfter)
}

func TestSummarizeSalesRanksCompletedOnly(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CreateSale(ctx, saleOf("prd-003", 10, 5000), hcm)
	require.NoError(t, err)
	_, err = s.CreateSale(ctx, saleOf("prd-001", 4, 12000), hcm)
	require.NoError(t, err)
	cancelled, err := s.CreateSale(ctx, saleOf("prd-002", 50, 11000), hcm)
	require.NoError(t, err)
	_, err = s.CancelSale(ctx, cancelled.ID, "", time.Now().UTC())
	require.NoError(t, err)

	summary, err := s.SummarizeSales(ctx, domain.SalesSummaryQuery{TopN: 5, Location: hcm})
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalOrders)
	require.Equal(t, int64(98000), summary.TotalRevenue)
	require.Equal(t, 14, summary.TotalProductsSold)
	require.Len(t, summary.TopByQuantity, 2)
	require.Equal(t, "prd-003", summary.TopByQuantity[0].ProductID)
	require.Equal(t, 1, summary.TopByQuantity[0].Rank)
	require.Equal(t, "prd-003", summary.TopByRevenue[0].ProductID)
	require.Len(t, summary.Daily, 1)
}

func TestUserUniquenessAndRoles(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, domain.UserAccount{Username: "thungan1", PasswordHash: "x", FullName: "Thu Ngân", Email: "tn1@fptmart.vn"}, []string{"role-cashier"})
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleCashier}, user.Roles)

	_, err = s.CreateUser(ctx, domain.UserAccount{Username: "THUNGAN1", PasswordHash: "x", FullName: "Dup", Email: "other@fptmart.vn"}, nil)
	require.ErrorIs(t, err, store.ErrConflict)
	_, err = s.CreateUser(ctx, domain.UserAccount{Username: "thungan2", PasswordHash: "x", FullName: "Dup", Email: "ADMIN@fptmart.vn"}, nil)
	require.ErrorIs(t, err, store.ErrConflict)

	require.NoError(t, s.AssignRole(ctx, user.ID, "role-manager"))
	require.NoError(t, s.AssignRole(ctx, user.ID, "role-manager"))
	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleCashier, domain.RoleManager}, got.Roles)

	require.NoError(t, s.RemoveRole(ctx, user.ID, "role-cashier"))
	require.ErrorIs(t, s.RemoveRole(ctx, user.ID, "role-cashier"), store.ErrNotFound)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	invoices := make(map[string]bool)
	failures := 0
	for range 120 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sale, err := s.CreateSale(ctx, saleOf("prd-001", 1, 12000), hcm)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return
			}
			invoices[sale.InvoiceNumber] = true
		}()
	}
	wg.Wait()

	require.Len(t, invoices, 100)
	require.Equal(t, 20, failures)

	product, err := s.GetProduct(ctx, "prd-001")
	require.NoError(t, err)
	require.Zero(t, product.StockQuantity)
}
