package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"fptmart/backend/internal/cache"
	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
	"fptmart/backend/internal/store/memory"
)

var hcm = time.FixedZone("ICT", 7*60*60)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fixture struct {
	svc   *Service
	repo  *memory.Store
	clock *testClock
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 5, 10, 0, 0, 0, hcm)}
	repo := memory.NewSeeded(memory.WithClock(clock.Now))
	opts.Location = hcm
	opts.Now = clock.Now
	return fixture{svc: New(repo, opts), repo: repo, clock: clock}
}

func asAdmin() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "usr-admin", Username: "admin", Roles: []string{domain.RoleAdmin}})
}

func asRole(role string) context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "usr-" + role, Username: role, Roles: []string{role}})
}

func line(productID string, qty int) domain.SaleItemRequest {
	return domain.SaleItemRequest{ProductID: productID, Quantity: qty}
}

func requireInvalidField(t *testing.T, err error, field string) {
	t.Helper()
	require.ErrorIs(t, err, store.ErrInvalidInput)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	require.Contains(t, verr.Fields, field)
}

func TestCreateSaleSnapshotsPricesAndMergesLines(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asRole(domain.RoleCashier)

	sale, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		PaidAmount:    100000,
		Items:         []domain.SaleItemRequest{line("prd-001", 2), line("prd-003", 4), line("prd-001", 1)},
	})
	require.NoError(t, err)
	require.Equal(t, "HD-20260305-001", sale.InvoiceNumber)
	require.Equal(t, "usr-Cashier", sale.UserID)
	require.Len(t, sale.Items, 2)
	require.Equal(t, "SP0001", sale.Items[0].ProductCode)
	require.Equal(t, 3, sale.Items[0].Quantity)
	require.Equal(t, int64(12000), sale.Items[0].UnitPrice)
	require.Equal(t, int64(56000), sale.SubTotal)
	require.Equal(t, int64(56000), sale.TotalAmount)
	require.Equal(t, int64(44000), sale.ChangeAmount)
	require.Equal(t, domain.SaleStatusCompleted, sale.Status)

	product, err := f.repo.GetProduct(context.Background(), "prd-001")
	require.NoError(t, err)
	require.Equal(t, 97, product.StockQuantity)

	next, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCard,
		Items:         []domain.SaleItemRequest{line("prd-002", 1)},
	})
	require.NoError(t, err)
	require.Equal(t, "HD-20260305-002", next.InvoiceNumber)
	require.Equal(t, int64(11000), next.PaidAmount)
	require.Zero(t, next.ChangeAmount)
}

func TestCreateSaleAppliesPercentDiscount(t *testing.T) {
	f := newFixture(t, Options{})

	sale, err := f.svc.CreateSale(asRole(domain.RoleCashier), domain.SaleCreateRequest{
		PaymentMethod:   domain.PaymentMomo,
		DiscountAmount:  500,
		DiscountPercent: 10,
		Items:           []domain.SaleItemRequest{line("prd-001", 2)},
	})
	require.NoError(t, err)
	require.Equal(t, int64(24000), sale.SubTotal)
	require.Equal(t, int64(2400), sale.DiscountAmount)
	require.Equal(t, int64(21600), sale.TotalAmount)
	require.Equal(t, int64(21600), sale.PaidAmount)
}

func TestCreateSaleRejectsBadInput(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asRole(domain.RoleCashier)

	_, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		PaidAmount:    1000,
		Items:         []domain.SaleItemRequest{line("prd-001", 1)},
	})
	requireInvalidField(t, err, "paid_amount")

	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{PaymentMethod: "Bitcoin", Items: []domain.SaleItemRequest{line("prd-001", 1)}})
	requireInvalidField(t, err, "payment_method")

	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCash})
	requireInvalidField(t, err, "items")

	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCard, Items: []domain.SaleItemRequest{line("prd-001", 0)}})
	requireInvalidField(t, err, "items[0].quantity")

	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCard, Items: []domain.SaleItemRequest{line("prd-404", 1)}})
	requireInvalidField(t, err, "items")

	require.NoError(t, f.svc.DeleteProduct(asAdmin(), "prd-002"))
	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCard, Items: []domain.SaleItemRequest{line("prd-002", 1)}})
	requireInvalidField(t, err, "items")

	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCard, Items: []domain.SaleItemRequest{line("prd-001", 101)}})
	require.ErrorIs(t, err, store.ErrInsufficientStock)
}

func TestRoleChecks(t *testing.T) {
	f := newFixture(t, Options{})
	req := domain.SaleCreateRequest{PaymentMethod: domain.PaymentCard, Items: []domain.SaleItemRequest{line("prd-001", 1)}}

	_, err := f.svc.CreateSale(context.Background(), req)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.CreateSale(asRole(domain.RoleStockKeeper), req)
	require.ErrorIs(t, err, ErrForbidden)

	sale, err := f.svc.CreateSale(asRole(domain.RoleCashier), req)
	require.NoError(t, err)

	_, err = f.svc.CancelSale(asRole(domain.RoleCashier), sale.ID, domain.SaleCancelRequest{})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ListUsers(asRole(domain.RoleManager))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.CreateCategory(asRole(domain.RoleCashier), domain.CategoryCreateRequest{Name: "Đồ gia dụng"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Dashboard(asRole(domain.RoleCashier))
	require.NoError(t, err)
}

func TestCancelSaleRestoresStockAndRevenue(t *testing.T) {
	f := newFixture(t, Options{})
	customer, err := f.svc.CreateCustomer(asRole(domain.RoleCashier), domain.CustomerCreateRequest{FullName: "Lê Văn C", Phone: "0901234567"})
	require.NoError(t, err)

	sale, err := f.svc.CreateSale(asRole(domain.RoleCashier), domain.SaleCreateRequest{
		CustomerID:    customer.ID,
		PaymentMethod: domain.PaymentCash,
		PaidAmount:    50000,
		Items:         []domain.SaleItemRequest{line("prd-004", 5)},
	})
	require.NoError(t, err)

	revenue, err := f.svc.TodayRevenue(asAdmin())
	require.NoError(t, err)
	require.Equal(t, int64(40000), revenue)

	cancelled, err := f.svc.CancelSale(asRole(domain.RoleManager), sale.ID, domain.SaleCancelRequest{Reason: "khách đổi ý"})
	require.NoError(t, err)
	require.Equal(t, domain.SaleStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	revenue, err = f.svc.TodayRevenue(asAdmin())
	require.NoError(t, err)
	require.Zero(t, revenue)
	count, err := f.svc.TodaySalesCount(asAdmin())
	require.NoError(t, err)
	require.Zero(t, count)

	product, err := f.repo.GetProduct(context.Background(), "prd-004")
	require.NoError(t, err)
	require.Equal(t, 150, product.StockQuantity)
	reloaded, err := f.repo.GetCustomer(context.Background(), customer.ID)
	require.NoError(t, err)
	require.Zero(t, reloaded.TotalPurchases)

	_, err = f.svc.CancelSale(asRole(domain.RoleManager), sale.ID, domain.SaleCancelRequest{})
	require.ErrorIs(t, err, store.ErrInvalidState)
}

func TestGetSaleByInvoiceIsCaseInsensitive(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asRole(domain.RoleCashier)
	sale, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCard, Items: []domain.SaleItemRequest{line("prd-003", 2)}})
	require.NoError(t, err)

	found, err := f.svc.GetSaleByInvoice(ctx, " hd-20260305-001 ")
	require.NoError(t, err)
	require.Equal(t, sale.ID, found.ID)

	all, err := f.svc.ListAllSales(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = f.svc.ListSales(ctx, domain.SaleFilter{From: f.clock.Now(), To: f.clock.Now()})
	requireInvalidField(t, err, "to")
}

func TestCreateStockInConvertsCases(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asRole(domain.RoleStockKeeper)

	stockIn, err := f.svc.CreateStockIn(ctx, domain.StockInCreateRequest{
		SupplierID: "sup-001",
		Items:      []domain.StockInItemRequest{{ProductID: "prd-001", CaseQuantity: 2, CaseCost: 192000}},
	})
	require.NoError(t, err)
	require.Equal(t, "NK-20260305-001", stockIn.StockInNumber)
	require.Equal(t, int64(384000), stockIn.TotalAmount)
	require.Equal(t, "usr-StockKeeper", stockIn.UserID)
	require.Equal(t, 48, stockIn.Items[0].Quantity)

	product, err := f.repo.GetProduct(context.Background(), "prd-001")
	require.NoError(t, err)
	require.Equal(t, 148, product.StockQuantity)
	require.Equal(t, int64(8000), product.CostPrice)

	_, err = f.svc.CreateStockIn(ctx, domain.StockInCreateRequest{
		SupplierID: "sup-404",
		Items:      []domain.StockInItemRequest{{ProductID: "prd-001", CaseQuantity: 1}},
	})
	requireInvalidField(t, err, "supplier_id")

	_, err = f.svc.CreateStockIn(ctx, domain.StockInCreateRequest{
		Items: []domain.StockInItemRequest{{ProductID: "prd-404", CaseQuantity: 1}},
	})
	requireInvalidField(t, err, "items[0].product_id")

	_, err = f.svc.CreateStockIn(asRole(domain.RoleCashier), domain.StockInCreateRequest{})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAdjustInventory(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asRole(domain.RoleStockKeeper)

	_, err := f.svc.AdjustInventory(ctx, domain.AdjustmentCreateRequest{ProductID: "prd-001", AdjustmentType: domain.AdjustmentCorrection, QuantityChange: 3})
	requireInvalidField(t, err, "reason")

	_, err = f.svc.AdjustInventory(ctx, domain.AdjustmentCreateRequest{ProductID: "prd-001", AdjustmentType: domain.AdjustmentDamage})
	requireInvalidField(t, err, "quantity_change")

	adjustment, err := f.svc.AdjustInventory(ctx, domain.AdjustmentCreateRequest{ProductID: "prd-001", AdjustmentType: domain.AdjustmentDamage, QuantityChange: -5, Reason: "móp lon"})
	require.NoError(t, err)
	require.Equal(t, 95, adjustment.StockAfter)

	_, err = f.svc.AdjustInventory(ctx, domain.AdjustmentCreateRequest{ProductID: "prd-001", AdjustmentType: domain.AdjustmentLost, QuantityChange: -1000})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	list, err := f.svc.ListAdjustments(ctx, domain.AdjustmentFilter{ProductID: "prd-001"})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCreateUserAndFirstLogin(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asAdmin()

	created, err := f.svc.CreateUser(ctx, domain.UserCreateRequest{
		Username: "thungan1",
		FullName: "Phạm Thị D",
		Email:    "d@fptmart.vn",
		RoleID:   "role-cashier",
	})
	require.NoError(t, err)
	require.Len(t, created.TemporaryPassword, temporaryPasswordLength)
	require.True(t, created.User.MustChangePassword)
	require.Equal(t, []string{domain.RoleCashier}, created.User.Roles)

	user, err := f.svc.Authenticate(context.Background(), "thungan1", created.TemporaryPassword)
	require.NoError(t, err)
	require.True(t, user.MustChangePassword)
	require.NotNil(t, user.LastLoginAt)

	userCtx := WithActor(context.Background(), domain.Actor{UserID: user.ID, Username: user.Username, Roles: user.Roles})
	require.NoError(t, f.svc.ChangePassword(userCtx, domain.ChangePasswordRequest{OldPassword: created.TemporaryPassword, NewPassword: "matkhau-moi"}))

	user, err = f.svc.Authenticate(context.Background(), "thungan1", "matkhau-moi")
	require.NoError(t, err)
	require.False(t, user.MustChangePassword)

	_, err = f.svc.CreateUser(ctx, domain.UserCreateRequest{Username: "thungan1", FullName: "Khác", Email: "other@fptmart.vn"})
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = f.svc.CreateUser(ctx, domain.UserCreateRequest{Username: "thungan2", FullName: "Khác", Email: "not-an-email"})
	requireInvalidField(t, err, "email")

	_, err = f.svc.CreateUser(ctx, domain.UserCreateRequest{Username: "thungan3", FullName: "Khác", Email: "e@fptmart.vn", RoleID: "role-owner"})
	requireInvalidField(t, err, "role_id")
}

func TestRefreshActorLoadsCurrentRoles(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asAdmin()
	created, err := f.svc.CreateUser(ctx, domain.UserCreateRequest{Username: "thungan9", FullName: "Thu Ngân", Email: "tn9@fptmart.vn", RoleID: "role-cashier"})
	require.NoError(t, err)
	stale := domain.Actor{UserID: created.User.ID, Username: "thungan9", Roles: []string{domain.RoleCashier}}

	_, err = f.svc.AssignRole(ctx, created.User.ID, "role-manager")
	require.NoError(t, err)
	actor, err := f.svc.RefreshActor(context.Background(), stale)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{domain.RoleCashier, domain.RoleManager}, actor.Roles)
	require.True(t, actor.MustChangePassword)

	_, err = f.svc.DeactivateUser(ctx, created.User.ID)
	require.NoError(t, err)
	_, err = f.svc.RefreshActor(context.Background(), stale)
	require.ErrorIs(t, err, ErrAccountDisabled)

	_, err = f.svc.RefreshActor(context.Background(), domain.Actor{UserID: "usr-ghost"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticateFailureOrder(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asAdmin()
	created, err := f.svc.CreateUser(ctx, domain.UserCreateRequest{Username: "kho1", FullName: "Kho", Email: "kho@fptmart.vn"})
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), "ghost", "whatever")
	require.ErrorIs(t, err, ErrUnknownUser)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Authenticate(context.Background(), "kho1", "wrong-password")
	require.ErrorIs(t, err, ErrWrongPassword)

	_, err = f.svc.DeactivateUser(ctx, created.User.ID)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(context.Background(), "kho1", "wrong-password")
	require.ErrorIs(t, err, ErrAccountDisabled)

	_, err = f.svc.ActivateUser(ctx, created.User.ID)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(context.Background(), "kho1", created.TemporaryPassword)
	require.NoError(t, err)
}

func TestAuthenticateUpgradesLegacyPassword(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.repo.SetUserPassword(context.Background(), "usr-admin", "admin123", false))

	_, err := f.svc.Authenticate(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	user, err := f.repo.GetUser(context.Background(), "usr-admin")
	require.NoError(t, err)
	require.True(t, isPasswordHash(user.PasswordHash))

	_, err = f.svc.Authenticate(context.Background(), "admin", "admin123")
	require.NoError(t, err)
}

func TestChangePasswordRules(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.repo.SetUserPassword(context.Background(), "usr-admin", "admin123", false))
	ctx := asAdmin()

	err := f.svc.ChangePassword(ctx, domain.ChangePasswordRequest{OldPassword: "admin123", NewPassword: "abc"})
	requireInvalidField(t, err, "new_password")

	err = f.svc.ChangePassword(ctx, domain.ChangePasswordRequest{OldPassword: "admin123", NewPassword: "admin123"})
	requireInvalidField(t, err, "new_password")

	err = f.svc.ChangePassword(ctx, domain.ChangePasswordRequest{OldPassword: "nope", NewPassword: "admin456"})
	requireInvalidField(t, err, "old_password")

	require.NoError(t, f.svc.ChangePassword(ctx, domain.ChangePasswordRequest{OldPassword: "admin123", NewPassword: "admin456"}))
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asAdmin()

	_, err := f.svc.DeactivateUser(ctx, "usr-admin")
	require.ErrorIs(t, err, store.ErrInvalidState)

	created, err := f.svc.CreateUser(ctx, domain.UserCreateRequest{Username: "quanly", FullName: "Quản Lý", Email: "ql@fptmart.vn"})
	require.NoError(t, err)
	require.Empty(t, created.User.Roles)

	user, err := f.svc.AssignRole(ctx, created.User.ID, "role-manager")
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleManager}, user.Roles)
	user, err = f.svc.AssignRole(ctx, created.User.ID, "role-manager")
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleManager}, user.Roles)

	user, err = f.svc.RemoveRole(ctx, created.User.ID, "role-manager")
	require.NoError(t, err)
	require.Empty(t, user.Roles)
	_, err = f.svc.RemoveRole(ctx, created.User.ID, "role-manager")
	require.ErrorIs(t, err, store.ErrNotFound)

	phone := "0912345678"
	updated, err := f.svc.UpdateUser(ctx, created.User.ID, domain.UserUpdateRequest{Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, phone, updated.Phone)

	reset, err := f.svc.ResetPassword(ctx, created.User.ID)
	require.NoError(t, err)
	require.Len(t, reset.TemporaryPassword, temporaryPasswordLength)
	user, err = f.svc.Authenticate(context.Background(), "quanly", reset.TemporaryPassword)
	require.NoError(t, err)
	require.True(t, user.MustChangePassword)
}

func TestDashboardServesCachedSnapshotUntilBumped(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache := cache.NewRedisDashboardCache(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = redisCache.Close() })
	f := newFixture(t, Options{DashboardCache: redisCache, DashboardCacheTTL: time.Minute})
	ctx := asRole(domain.RoleCashier)

	summary, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Zero(t, summary.TodayRevenue)
	require.Empty(t, summary.TopProducts)

	// A write that skips the service leaves the cached snapshot in place.
	direct := domain.Sale{
		UserID:        "usr-admin",
		SaleDate:      f.clock.Now().UTC(),
		PaymentMethod: domain.PaymentCash,
		SubTotal:      12000,
		TotalAmount:   12000,
		PaidAmount:    12000,
		Items:         []domain.SaleItem{{ProductID: "prd-001", ProductCode: "SP0001", ProductName: "Coca Cola 330ml", Quantity: 1, UnitPrice: 12000, TotalPrice: 12000}},
	}
	_, err = f.repo.CreateSale(context.Background(), direct, hcm)
	require.NoError(t, err)
	summary, err = f.svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Zero(t, summary.TodayRevenue)

	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCard, Items: []domain.SaleItemRequest{line("prd-003", 2)}})
	require.NoError(t, err)
	summary, err = f.svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(22000), summary.TodayRevenue)
	require.Equal(t, 2, summary.TodaySalesCount)
	require.Len(t, summary.TopProducts, 2)
	require.Equal(t, "SP0001", summary.TopProducts[0].ProductCode)
	require.Equal(t, 1, summary.TopProducts[0].Rank)
}

func TestDashboardCountsLowStock(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.AdjustInventory(asRole(domain.RoleStockKeeper), domain.AdjustmentCreateRequest{
		ProductID: "prd-002", AdjustmentType: domain.AdjustmentExpired, QuantityChange: -75,
	})
	require.NoError(t, err)

	summary, err := f.svc.WarmDashboard(asAdmin())
	require.NoError(t, err)
	require.Equal(t, 1, summary.LowStockCount)

	low, err := f.svc.ScanLowStock(asAdmin())
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "SP0002", low[0].ProductCode)
}

func TestSalesReport(t *testing.T) {
	f := newFixture(t, Options{})
	cashier := asRole(domain.RoleCashier)

	_, err := f.svc.CreateSale(cashier, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCard, Items: []domain.SaleItemRequest{line("prd-001", 1), line("prd-003", 6)}})
	require.NoError(t, err)
	f.clock.Set(time.Date(2026, 3, 6, 23, 30, 0, 0, hcm))
	_, err = f.svc.CreateSale(cashier, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCard, Items: []domain.SaleItemRequest{line("prd-001", 2)}})
	require.NoError(t, err)
	f.clock.Set(time.Date(2026, 3, 8, 9, 0, 0, 0, hcm))
	_, err = f.svc.CreateSale(cashier, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCard, Items: []domain.SaleItemRequest{line("prd-004", 1)}})
	require.NoError(t, err)

	report, err := f.svc.SalesReport(asRole(domain.RoleManager), "2026-03-05", "2026-03-06")
	require.NoError(t, err)
	require.Equal(t, int64(66000), report.TotalRevenue)
	require.Equal(t, 2, report.TotalOrders)
	require.Equal(t, int64(33000), report.AverageOrderValue)
	require.Equal(t, 9, report.TotalProductsSold)
	require.Equal(t, "SP0003", report.TopProducts[0].ProductCode)
	require.Equal(t, 1, report.TopProducts[0].Rank)
	require.Equal(t, []domain.DailyRevenue{
		{Date: "2026-03-05", Orders: 1, Revenue: 42000},
		{Date: "2026-03-06", Orders: 1, Revenue: 24000},
	}, report.Daily)

	_, err = f.svc.SalesReport(asRole(domain.RoleManager), "2026-03-07", "2026-03-06")
	requireInvalidField(t, err, "to")
	_, err = f.svc.SalesReport(asRole(domain.RoleManager), "05/03/2026", "")
	requireInvalidField(t, err, "from")
	_, err = f.svc.SalesReport(cashier, "", "")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestLookupForPOS(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asRole(domain.RoleCashier)

	byCode, err := f.svc.LookupForPOS(ctx, "sp0003")
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	require.Equal(t, "prd-003", byCode[0].ID)

	byBarcode, err := f.svc.LookupForPOS(ctx, "8934588012112")
	require.NoError(t, err)
	require.Equal(t, "SP0001", byBarcode[0].ProductCode)

	_, err = f.svc.LookupForPOS(ctx, "0000")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.AdjustInventory(asAdmin(), domain.AdjustmentCreateRequest{ProductID: "prd-003", AdjustmentType: domain.AdjustmentCorrection, QuantityChange: -200, Reason: "kiểm kê"})
	require.NoError(t, err)
	_, err = f.svc.LookupForPOS(ctx, "SP0003")
	require.ErrorIs(t, err, store.ErrNotFound)

	pos, err := f.svc.ListPOSProducts(ctx, "")
	require.NoError(t, err)
	require.Len(t, pos, 3)
}

func TestCatalogWritesAreAudited(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := asAdmin()

	category, err := f.svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "  Đồ gia dụng  "})
	require.NoError(t, err)
	require.Equal(t, "Đồ gia dụng", category.Name)
	_, err = f.svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "đồ gia dụng"})
	require.ErrorIs(t, err, store.ErrConflict)

	product, err := f.svc.CreateProduct(ctx, domain.ProductCreateRequest{Name: "Nồi cơm", CategoryID: category.ID, SellingPrice: 450000})
	require.NoError(t, err)
	require.Equal(t, "SP0005", product.ProductCode)
	require.Equal(t, domain.DefaultUnit, product.Unit)
	require.Equal(t, domain.DefaultMinStockLevel, product.MinStockLevel)

	require.NoError(t, f.svc.DeleteCategory(ctx, category.ID))
	_, err = f.svc.CreateProduct(ctx, domain.ProductCreateRequest{Name: "Chảo", CategoryID: category.ID})
	requireInvalidField(t, err, "category_id")

	logs, err := f.svc.ListAuditLogs(ctx, "2026-03-05", 0)
	require.NoError(t, err)
	actions := make([]string, 0, len(logs))
	for _, entry := range logs {
		actions = append(actions, entry.Action)
	}
	require.Subset(t, actions, []string{"category_create", "product_create", "category_update"})
}
