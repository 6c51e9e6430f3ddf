package memory

import (
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"

	"fptmart/backend/internal/domain"
)

// NewSeeded returns a store holding the demo catalog that ships with a fresh
// install: four roles, an admin account, five categories, two suppliers and
// four products.
func NewSeeded(opts ...Option) *Store {
	s := New(opts...)
	now := s.now().UTC()

	roles := []domain.Role{
		{ID: "role-admin", Name: domain.RoleAdmin, Description: "Quản trị viên hệ thống"},
		{ID: "role-manager", Name: domain.RoleManager, Description: "Quản lý cửa hàng"},
		{ID: "role-cashier", Name: domain.RoleCashier, Description: "Nhân viên thu ngân"},
		{ID: "role-stockkeeper", Name: domain.RoleStockKeeper, Description: "Nhân viên kho"},
	}
	for _, role := range roles {
		s.roles[role.ID] = role
	}

	s.users["usr-admin"] = domain.UserAccount{
		ID:           "usr-admin",
		Username:     "admin",
		PasswordHash: seedPasswordHash(),
		FullName:     "Administrator",
		Email:        "admin@fptmart.vn",
		IsActive:     true,
		CreatedAt:    now,
	}
	s.userRoles["usr-admin"] = []string{"role-admin"}

	categories := []domain.Category{
		{ID: "cat-001", Name: "Đồ uống", Description: "Nước giải khát, nước ngọt"},
		{ID: "cat-002", Name: "Bánh kẹo", Description: "Bánh, kẹo các loại"},
		{ID: "cat-003", Name: "Mì gói", Description: "Mì ăn liền"},
		{ID: "cat-004", Name: "Sữa", Description: "Sữa tươi, sữa hộp"},
		{ID: "cat-005", Name: "Gia vị", Description: "Gia vị nấu ăn"},
	}
	for _, c := range categories {
		c.IsActive = true
		c.CreatedAt = now
		s.categories[c.ID] = c
	}

	suppliers := []domain.Supplier{
		{ID: "sup-001", Name: "Công ty TNHH Coca-Cola Việt Nam", ContactPerson: "Nguyễn Văn A", Phone: "0281234567", Email: "contact@coca-cola.vn"},
		{ID: "sup-002", Name: "Công ty CP Acecook Việt Nam", ContactPerson: "Trần Thị B", Phone: "0287654321", Email: "contact@acecook.vn"},
	}
	for _, sup := range suppliers {
		sup.IsActive = true
		sup.CreatedAt = now
		s.suppliers[sup.ID] = sup
	}

	products := []domain.Product{
		{ID: "prd-001", ProductCode: "SP0001", Barcode: "8934588012112", Name: "Coca Cola 330ml", CategoryID: "cat-001", CostPrice: 8000, SellingPrice: 12000, StockQuantity: 100, UnitsPerCase: 24, Unit: "Lon"},
		{ID: "prd-002", ProductCode: "SP0002", Barcode: "8934588063053", Name: "Pepsi 330ml", CategoryID: "cat-001", CostPrice: 7500, SellingPrice: 11000, StockQuantity: 80, UnitsPerCase: 24, Unit: "Lon"},
		{ID: "prd-003", ProductCode: "SP0003", Barcode: "8934563138165", Name: "Mì Hảo Hảo", CategoryID: "cat-003", CostPrice: 3500, SellingPrice: 5000, StockQuantity: 200, UnitsPerCase: 30, Unit: "Gói"},
		{ID: "prd-004", ProductCode: "SP0004", Barcode: "8934673573016", Name: "Sữa Vinamilk 180ml", CategoryID: "cat-004", CostPrice: 6000, SellingPrice: 8000, StockQuantity: 150, UnitsPerCase: 48, Unit: "Hộp"},
	}
	for _, p := range products {
		p.MinStockLevel = domain.DefaultMinStockLevel
		p.CaseUnit = domain.DefaultCaseUnit
		p.IsActive = true
		p.CreatedAt = now
		p.SearchKey = domain.ProductSearchKey(p)
		s.products[p.ID] = p
	}

	return s
}

// seedPasswordHash reads SEED_ADMIN_PASSWORD, falling back to the demo
// password with a warning.
func seedPasswordHash() string {
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		slog.Default().Warn("memory store using default admin password; set SEED_ADMIN_PASSWORD to override")
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Default().Error("hash seed password", slog.Any("error", err))
		os.Exit(1)
	}
	return string(hash)
}
