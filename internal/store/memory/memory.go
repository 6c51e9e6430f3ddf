package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
	"fptmart/backend/internal/xid"
)

type Store struct {
	mu          sync.RWMutex
	categories  map[string]domain.Category
	products    map[string]domain.Product
	customers   map[string]domain.Customer
	suppliers   map[string]domain.Supplier
	sales       map[string]*domain.Sale
	stockIns    map[string]*domain.StockIn
	adjustments []domain.InventoryAdjustment
	roles       map[string]domain.Role
	users       map[string]domain.UserAccount
	userRoles   map[string][]string
	auditLogs   []domain.AuditLog
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the source of creation and update timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		categories:  make(map[string]domain.Category),
		products:    make(map[string]domain.Product),
		customers:   make(map[string]domain.Customer),
		suppliers:   make(map[string]domain.Supplier),
		sales:       make(map[string]*domain.Sale),
		stockIns:    make(map[string]*domain.StockIn),
		adjustments: make([]domain.InventoryAdjustment, 0, 64),
		roles:       make(map[string]domain.Role),
		users:       make(map[string]domain.UserAccount),
		userRoles:   make(map[string][]string),
		auditLogs:   make([]domain.AuditLog, 0, 128),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ListCategories(_ context.Context, includeInactive bool) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.categories))
	for _, p := range s.products {
		if p.IsActive {
			counts[p.CategoryID]++
		}
	}

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if !c.IsActive && !includeInactive {
			continue
		}
		c.ProductCount = counts[c.ID]
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, p := range s.products {
		if p.IsActive && p.CategoryID == id {
			category.ProductCount++
		}
	}
	return &category, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if s.categoryNameTaken(category.Name, "") {
		return nil, store.ErrConflict
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	category.IsActive = true
	category.CreatedAt = s.now().UTC()
	category.ProductCount = 0
	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if s.categoryNameTaken(category.Name, category.ID) {
		return nil, store.ErrConflict
	}
	now := s.now().UTC()
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = &now
	category.ProductCount = 0
	s.categories[category.ID] = category
	updated := category
	return &updated, nil
}

func (s *Store) categoryNameTaken(name string, exceptID string) bool {
	for id, c := range s.categories {
		if id != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.IsActive && !filter.IncludeInactive {
			continue
		}
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.LowStockOnly && !p.IsLowStock() {
			continue
		}
		if filter.InStockOnly && p.StockQuantity <= 0 {
			continue
		}
		if filter.Barcode != "" && p.Barcode != filter.Barcode {
			continue
		}
		if filter.Query != "" && !domain.MatchesQuery(p.SearchKey, filter.Query) && p.Barcode != strings.TrimSpace(filter.Query) {
			continue
		}
		products = append(products, s.withCategoryName(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductCode, b.ProductCode)
	})
	if filter.Limit > 0 && len(products) > filter.Limit {
		products = products[:filter.Limit]
	}
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	product = s.withCategoryName(product)
	return &product, nil
}

func (s *Store) GetProductByCode(_ context.Context, code string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if strings.EqualFold(p.ProductCode, code) {
			p = s.withCategoryName(p)
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListProductsByBarcode(_ context.Context, barcode string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.Product, 0, 2)
	for _, p := range s.products {
		if p.IsActive && barcode != "" && p.Barcode == barcode {
			matches = append(matches, s.withCategoryName(p))
		}
	}
	slices.SortFunc(matches, func(a, b domain.Product) int {
		return cmp.Compare(a.ProductCode, b.ProductCode)
	})
	return matches, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.CategoryID == "" {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.categories[product.CategoryID]; !ok {
		return nil, store.ErrInvalidInput
	}

	codes := make([]string, 0, len(s.products))
	for _, p := range s.products {
		if product.ProductCode != "" && strings.EqualFold(p.ProductCode, product.ProductCode) {
			return nil, store.ErrConflict
		}
		codes = append(codes, p.ProductCode)
	}
	if product.ProductCode == "" {
		product.ProductCode = domain.NextProductCode(codes)
	}

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	product.IsActive = true
	product.CreatedAt = s.now().UTC()
	product.UpdatedAt = nil
	product.SearchKey = domain.ProductSearchKey(product)
	s.products[product.ID] = product

	created := s.withCategoryName(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.Name == "" || product.CategoryID == "" {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.categories[product.CategoryID]; !ok {
		return nil, store.ErrInvalidInput
	}

	// Stock only moves through sales, stock-ins and adjustments.
	product.StockQuantity = existing.StockQuantity
	product.ProductCode = existing.ProductCode
	product.CreatedAt = existing.CreatedAt
	now := s.now().UTC()
	product.UpdatedAt = &now
	product.SearchKey = domain.ProductSearchKey(product)
	s.products[product.ID] = product

	updated := s.withCategoryName(product)
	return &updated, nil
}

func (s *Store) withCategoryName(p domain.Product) domain.Product {
	if c, ok := s.categories[p.CategoryID]; ok {
		p.CategoryName = c.Name
	}
	return p
}

func (s *Store) ListCustomers(_ context.Context, query string, includeInactive bool) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.TrimSpace(query)
	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if !c.IsActive && !includeInactive {
			continue
		}
		if query != "" && !domain.MatchesQuery(domain.SearchKey(c.FullName), query) && !strings.Contains(c.Phone, query) {
			continue
		}
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmp.Compare(a.FullName, b.FullName)
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &customer, nil
}

func (s *Store) GetCustomerByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if phone != "" && c.Phone == phone {
			found := c
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.FullName == "" {
		return nil, store.ErrInvalidInput
	}
	if s.customerPhoneTaken(customer.Phone, "") {
		return nil, store.ErrConflict
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	customer.IsActive = true
	customer.TotalPurchases = 0
	customer.CreatedAt = s.now().UTC()
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if customer.FullName == "" {
		return nil, store.ErrInvalidInput
	}
	if s.customerPhoneTaken(customer.Phone, customer.ID) {
		return nil, store.ErrConflict
	}
	now := s.now().UTC()
	customer.TotalPurchases = existing.TotalPurchases
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = &now
	s.customers[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) customerPhoneTaken(phone string, exceptID string) bool {
	if phone == "" {
		return false
	}
	for id, c := range s.customers {
		if id != exceptID && c.Phone == phone {
			return true
		}
	}
	return false
}

func (s *Store) ListSuppliers(_ context.Context, activeOnly bool) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		if activeOnly && !sup.IsActive {
			continue
		}
		suppliers = append(suppliers, sup)
	}
	slices.SortFunc(suppliers, func(a, b domain.Supplier) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return suppliers, nil
}

func (s *Store) GetSupplier(_ context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	supplier, ok := s.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &supplier, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	supplier.IsActive = true
	supplier.CreatedAt = s.now().UTC()
	s.suppliers[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.suppliers[supplier.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	now := s.now().UTC()
	supplier.CreatedAt = existing.CreatedAt
	supplier.UpdatedAt = &now
	s.suppliers[supplier.ID] = supplier
	updated := supplier
	return &updated, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, loc *time.Location) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	var customer domain.Customer
	if !sale.IsWalkIn() {
		c, ok := s.customers[*sale.CustomerID]
		if !ok || !c.IsActive {
			return nil, fmt.Errorf("customer %s unavailable: %w", *sale.CustomerID, store.ErrInvalidInput)
		}
		customer = c
	}

	demand := make(map[string]int, len(sale.Items))
	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		product, ok := s.products[item.ProductID]
		if !ok || !product.IsActive {
			return nil, fmt.Errorf("product %s unavailable: %w", item.ProductID, store.ErrInvalidInput)
		}
		demand[item.ProductID] += item.Quantity
		if product.StockQuantity < demand[item.ProductID] {
			return nil, fmt.Errorf("product %s has %d left: %w", product.ProductCode, product.StockQuantity, store.ErrInsufficientStock)
		}
	}

	if sale.SaleDate.IsZero() {
		sale.SaleDate = s.now().UTC()
	}
	numbers := make([]string, 0, len(s.sales))
	for _, existing := range s.sales {
		numbers = append(numbers, existing.InvoiceNumber)
	}
	day := sale.SaleDate.In(loc)
	sale.InvoiceNumber = domain.NextInvoiceNumber(day, domain.LatestDailyNumber(domain.InvoicePrefix, day, numbers))

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	sale.Status = domain.SaleStatusCompleted
	sale.CreatedAt = s.now().UTC()
	items := make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		item.ID = xid.New("si")
		item.SaleID = sale.ID
		items = append(items, item)
	}
	sale.Items = items

	for productID, qty := range demand {
		product := s.products[productID]
		product.StockQuantity -= qty
		s.products[productID] = product
	}
	if !sale.IsWalkIn() {
		customer.TotalPurchases += sale.TotalAmount
		s.customers[customer.ID] = customer
		sale.CustomerName = customer.FullName
	}

	s.sales[sale.ID] = cloneSale(&sale)
	return cloneSale(&sale), nil
}

func (s *Store) CancelSale(_ context.Context, id string, reason string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != domain.SaleStatusCompleted {
		return nil, store.ErrInvalidState
	}

	for _, item := range sale.Items {
		product, ok := s.products[item.ProductID]
		if !ok {
			continue
		}
		product.StockQuantity += item.Quantity
		s.products[item.ProductID] = product
	}
	if !sale.IsWalkIn() {
		if customer, ok := s.customers[*sale.CustomerID]; ok {
			customer.TotalPurchases = max(0, customer.TotalPurchases-sale.TotalAmount)
			s.customers[customer.ID] = customer
		}
	}

	sale.Status = domain.SaleStatusCancelled
	sale.CancelReason = reason
	cancelledAt := at
	sale.CancelledAt = &cancelledAt
	return s.decorateSale(sale), nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.decorateSale(sale), nil
}

func (s *Store) GetSaleByInvoice(_ context.Context, invoiceNumber string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sale := range s.sales {
		if sale.InvoiceNumber == invoiceNumber {
			return s.decorateSale(sale), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if !inRange(sale.SaleDate, filter.From, filter.To) {
			continue
		}
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		sales = append(sales, *s.decorateSale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.SaleDate.Compare(a.SaleDate)
	})
	if filter.Limit > 0 && len(sales) > filter.Limit {
		sales = sales[:filter.Limit]
	}
	return sales, nil
}

func (s *Store) SummarizeSales(_ context.Context, query domain.SalesSummaryQuery) (domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc := query.Location
	if loc == nil {
		loc = time.UTC
	}

	summary := domain.SalesSummary{}
	byProduct := make(map[string]*domain.TopSellingProduct)
	byDay := make(map[string]*domain.DailyRevenue)
	for _, sale := range s.sales {
		if sale.Status != domain.SaleStatusCompleted || !inRange(sale.SaleDate, query.From, query.To) {
			continue
		}
		summary.TotalRevenue += sale.TotalAmount
		summary.TotalOrders++

		dayKey := sale.SaleDate.In(loc).Format(time.DateOnly)
		day, ok := byDay[dayKey]
		if !ok {
			day = &domain.DailyRevenue{Date: dayKey}
			byDay[dayKey] = day
		}
		day.Orders++
		day.Revenue += sale.TotalAmount

		for _, item := range sale.Items {
			summary.TotalProductsSold += item.Quantity
			top, ok := byProduct[item.ProductID]
			if !ok {
				top = &domain.TopSellingProduct{ProductID: item.ProductID, ProductCode: item.ProductCode, ProductName: item.ProductName}
				byProduct[item.ProductID] = top
			}
			top.QuantitySold += item.Quantity
			top.TotalRevenue += item.TotalPrice
		}
	}

	ranked := make([]domain.TopSellingProduct, 0, len(byProduct))
	for _, top := range byProduct {
		ranked = append(ranked, *top)
	}
	summary.TopByQuantity = rankProducts(ranked, query.TopN, func(a, b domain.TopSellingProduct) int {
		if c := cmp.Compare(b.QuantitySold, a.QuantitySold); c != 0 {
			return c
		}
		return cmp.Compare(b.TotalRevenue, a.TotalRevenue)
	})
	summary.TopByRevenue = rankProducts(ranked, query.TopN, func(a, b domain.TopSellingProduct) int {
		if c := cmp.Compare(b.TotalRevenue, a.TotalRevenue); c != 0 {
			return c
		}
		return cmp.Compare(b.QuantitySold, a.QuantitySold)
	})

	summary.Daily = make([]domain.DailyRevenue, 0, len(byDay))
	for _, day := range byDay {
		summary.Daily = append(summary.Daily, *day)
	}
	slices.SortFunc(summary.Daily, func(a, b domain.DailyRevenue) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return summary, nil
}

func rankProducts(products []domain.TopSellingProduct, topN int, order func(a, b domain.TopSellingProduct) int) []domain.TopSellingProduct {
	ranked := slices.Clone(products)
	slices.SortStableFunc(ranked, func(a, b domain.TopSellingProduct) int {
		if c := order(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductCode, b.ProductCode)
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func (s *Store) CreateStockIn(_ context.Context, stockIn domain.StockIn, loc *time.Location) (*domain.StockIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(stockIn.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if stockIn.SupplierID != nil && *stockIn.SupplierID != "" {
		supplier, ok := s.suppliers[*stockIn.SupplierID]
		if !ok {
			return nil, fmt.Errorf("supplier %s unavailable: %w", *stockIn.SupplierID, store.ErrInvalidInput)
		}
		stockIn.SupplierName = supplier.Name
	} else {
		stockIn.SupplierID = nil
	}

	updated := make(map[string]domain.Product, len(stockIn.Items))
	items := make([]domain.StockInItem, 0, len(stockIn.Items))
	for _, item := range stockIn.Items {
		if item.CaseQuantity < 1 || item.CaseCost < 0 {
			return nil, store.ErrInvalidInput
		}
		product, ok := updated[item.ProductID]
		if !ok {
			product, ok = s.products[item.ProductID]
			if !ok {
				return nil, fmt.Errorf("product %s unavailable: %w", item.ProductID, store.ErrInvalidInput)
			}
		}
		item = receiveItem(item, product)
		product.StockQuantity += item.Quantity
		product.CostPrice = item.UnitCost
		updated[product.ID] = product
		items = append(items, item)
	}

	if stockIn.StockInDate.IsZero() {
		stockIn.StockInDate = s.now().UTC()
	}
	numbers := make([]string, 0, len(s.stockIns))
	for _, existing := range s.stockIns {
		numbers = append(numbers, existing.StockInNumber)
	}
	day := stockIn.StockInDate.In(loc)
	stockIn.StockInNumber = domain.NextStockInNumber(day, domain.LatestDailyNumber(domain.StockInNumberPrefix, day, numbers))

	if stockIn.ID == "" {
		stockIn.ID = xid.New("nk")
	}
	for i := range items {
		items[i].ID = xid.New("nki")
		items[i].StockInID = stockIn.ID
	}
	stockIn.Items = items
	stockIn.Status = domain.StockInStatusCompleted
	stockIn.CreatedAt = s.now().UTC()
	stockIn.Recalculate()

	now := s.now().UTC()
	for id, product := range updated {
		product.UpdatedAt = &now
		s.products[id] = product
	}
	s.stockIns[stockIn.ID] = cloneStockIn(&stockIn)
	return cloneStockIn(&stockIn), nil
}

// receiveItem snapshots the product onto a stock-in line and converts cases.
func receiveItem(item domain.StockInItem, product domain.Product) domain.StockInItem {
	item.ProductCode = product.ProductCode
	item.ProductName = product.Name
	item.UnitsPerCase = product.UnitsPerCase
	item.CaseUnit = product.CaseUnit
	item.Unit = product.Unit
	item.Quantity = domain.CaseToUnits(item.CaseQuantity, product.UnitsPerCase)
	item.UnitCost = domain.UnitCostFromCase(item.CaseCost, product.UnitsPerCase)
	item.TotalPrice = int64(item.CaseQuantity) * item.CaseCost
	return item
}

func (s *Store) GetStockIn(_ context.Context, id string) (*domain.StockIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stockIn, ok := s.stockIns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneStockIn(stockIn), nil
}

func (s *Store) ListStockIns(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.StockIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stockIns := make([]domain.StockIn, 0, len(s.stockIns))
	for _, stockIn := range s.stockIns {
		if !inRange(stockIn.StockInDate, from, to) {
			continue
		}
		stockIns = append(stockIns, *cloneStockIn(stockIn))
	}
	slices.SortFunc(stockIns, func(a, b domain.StockIn) int {
		return b.StockInDate.Compare(a.StockInDate)
	})
	if limit > 0 && len(stockIns) > limit {
		stockIns = stockIns[:limit]
	}
	return stockIns, nil
}

func (s *Store) CreateAdjustment(_ context.Context, adjustment domain.InventoryAdjustment) (*domain.InventoryAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if adjustment.QuantityChange == 0 || !domain.IsAdjustmentType(adjustment.AdjustmentType) {
		return nil, store.ErrInvalidInput
	}
	product, ok := s.products[adjustment.ProductID]
	if !ok {
		return nil, store.ErrNotFound
	}
	newStock := product.StockQuantity + adjustment.QuantityChange
	if newStock < 0 {
		return nil, fmt.Errorf("product %s has %d left: %w", product.ProductCode, product.StockQuantity, store.ErrInsufficientStock)
	}

	now := s.now().UTC()
	product.StockQuantity = newStock
	product.UpdatedAt = &now
	s.products[product.ID] = product

	if adjustment.ID == "" {
		adjustment.ID = xid.New("adj")
	}
	if adjustment.AdjustmentDate.IsZero() {
		adjustment.AdjustmentDate = now
	}
	adjustment.ProductCode = product.ProductCode
	adjustment.ProductName = product.Name
	adjustment.StockAfter = newStock
	adjustment.CreatedAt = now
	s.adjustments = append(s.adjustments, adjustment)
	created := adjustment
	return &created, nil
}

func (s *Store) ListAdjustments(_ context.Context, filter domain.AdjustmentFilter) ([]domain.InventoryAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adjustments := make([]domain.InventoryAdjustment, 0, len(s.adjustments))
	for _, adj := range s.adjustments {
		if filter.ProductID != "" && adj.ProductID != filter.ProductID {
			continue
		}
		if !inRange(adj.AdjustmentDate, filter.From, filter.To) {
			continue
		}
		adjustments = append(adjustments, adj)
	}
	slices.SortStableFunc(adjustments, func(a, b domain.InventoryAdjustment) int {
		return b.AdjustmentDate.Compare(a.AdjustmentDate)
	})
	if filter.Limit > 0 && len(adjustments) > filter.Limit {
		adjustments = adjustments[:filter.Limit]
	}
	return adjustments, nil
}

func (s *Store) ListRoles(_ context.Context) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]domain.Role, 0, len(s.roles))
	for _, role := range s.roles {
		roles = append(roles, role)
	}
	slices.SortFunc(roles, func(a, b domain.Role) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return roles, nil
}

func (s *Store) GetRole(_ context.Context, id string) (*domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &role, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, s.withRoles(user))
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmp.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	user = s.withRoles(user)
	return &user, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username = strings.TrimSpace(username)
	for _, user := range s.users {
		if strings.EqualFold(user.Username, username) {
			user = s.withRoles(user)
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount, roleIDs []string) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.PasswordHash == "" || user.FullName == "" {
		return nil, store.ErrInvalidInput
	}
	if s.userIdentityTaken(user, "") {
		return nil, store.ErrConflict
	}
	for _, roleID := range roleIDs {
		if _, ok := s.roles[roleID]; !ok {
			return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
	}

	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	user.IsActive = true
	user.CreatedAt = s.now().UTC()
	user.Roles = nil
	s.users[user.ID] = user
	s.userRoles[user.ID] = slices.Clone(roleIDs)

	created := s.withRoles(user)
	return &created, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if user.FullName == "" {
		return nil, store.ErrInvalidInput
	}
	user.Username = existing.Username
	if s.userIdentityTaken(user, user.ID) {
		return nil, store.ErrConflict
	}

	now := s.now().UTC()
	existing.FullName = user.FullName
	existing.Email = user.Email
	existing.Phone = user.Phone
	existing.IsActive = user.IsActive
	existing.UpdatedAt = &now
	s.users[user.ID] = existing

	updated := s.withRoles(existing)
	return &updated, nil
}

func (s *Store) userIdentityTaken(user domain.UserAccount, exceptID string) bool {
	for id, other := range s.users {
		if id == exceptID {
			continue
		}
		if strings.EqualFold(other.Username, user.Username) {
			return true
		}
		if user.Email != "" && strings.EqualFold(other.Email, user.Email) {
			return true
		}
		if user.Phone != "" && other.Phone == user.Phone {
			return true
		}
	}
	return false
}

func (s *Store) SetUserPassword(_ context.Context, userID string, passwordHash string, mustChange bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(passwordHash) == "" {
		return store.ErrInvalidInput
	}
	user, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	now := s.now().UTC()
	user.PasswordHash = passwordHash
	user.MustChangePassword = mustChange
	user.UpdatedAt = &now
	s.users[userID] = user
	return nil
}

func (s *Store) RecordLogin(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	loginAt := at
	user.LastLoginAt = &loginAt
	s.users[userID] = user
	return nil
}

func (s *Store) AssignRole(_ context.Context, userID string, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}
	if _, ok := s.roles[roleID]; !ok {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	if slices.Contains(s.userRoles[userID], roleID) {
		return nil
	}
	s.userRoles[userID] = append(s.userRoles[userID], roleID)
	return nil
}

func (s *Store) RemoveRole(_ context.Context, userID string, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roles := s.userRoles[userID]
	idx := slices.Index(roles, roleID)
	if idx < 0 {
		return store.ErrNotFound
	}
	s.userRoles[userID] = slices.Delete(slices.Clone(roles), idx, idx+1)
	return nil
}

func (s *Store) withRoles(user domain.UserAccount) domain.UserAccount {
	names := make([]string, 0, len(s.userRoles[user.ID]))
	for _, roleID := range s.userRoles[user.ID] {
		if role, ok := s.roles[roleID]; ok {
			names = append(names, role.Name)
		}
	}
	slices.Sort(names)
	user.Roles = names
	return user
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, min(len(s.auditLogs), max(limit, 0)))
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if !inRange(entry.CreatedAt, from, to) {
			continue
		}
		logs = append(logs, entry)
		if limit > 0 && len(logs) >= limit {
			break
		}
	}
	return logs, nil
}

func (s *Store) decorateSale(sale *domain.Sale) *domain.Sale {
	out := cloneSale(sale)
	if !out.IsWalkIn() {
		if customer, ok := s.customers[*out.CustomerID]; ok {
			out.CustomerName = customer.FullName
		}
	}
	return out
}

// inRange treats a zero bound as open.
func inRange(t time.Time, from time.Time, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	out := *src
	out.Items = slices.Clone(src.Items)
	if src.CustomerID != nil {
		id := *src.CustomerID
		out.CustomerID = &id
	}
	if src.CancelledAt != nil {
		at := *src.CancelledAt
		out.CancelledAt = &at
	}
	return &out
}

func cloneStockIn(src *domain.StockIn) *domain.StockIn {
	if src == nil {
		return nil
	}
	out := *src
	out.Items = slices.Clone(src.Items)
	if src.SupplierID != nil {
		id := *src.SupplierID
		out.SupplierID = &id
	}
	return &out
}
