package domain

import (
	"slices"
	"time"
)

const (
	RoleAdmin       = "Admin"
	RoleManager     = "Manager"
	RoleCashier     = "Cashier"
	RoleStockKeeper = "StockKeeper"
)

const (
	PaymentCash         = "Cash"
	PaymentBankTransfer = "BankTransfer"
	PaymentCard         = "Card"
	PaymentMomo         = "Momo"
)

const (
	SaleStatusCompleted = "Completed"
	SaleStatusCancelled = "Cancelled"
	SaleStatusRefunded  = "Refunded"
)

const StockInStatusCompleted = "Completed"

const (
	AdjustmentDamage           = "Damage"
	AdjustmentExpired          = "Expired"
	AdjustmentLost             = "Lost"
	AdjustmentReturnToSupplier = "ReturnToSupplier"
	AdjustmentCorrection       = "Correction"
	AdjustmentGift             = "Gift"
)

const (
	DefaultMinStockLevel = 10
	DefaultUnitsPerCase  = 1
	DefaultCaseUnit      = "Thùng"
	DefaultUnit          = "Cái"
)

var PaymentMethods = []string{PaymentCash, PaymentBankTransfer, PaymentCard, PaymentMomo}

var AdjustmentTypes = []string{
	AdjustmentDamage,
	AdjustmentExpired,
	AdjustmentLost,
	AdjustmentReturnToSupplier,
	AdjustmentCorrection,
	AdjustmentGift,
}

func IsPaymentMethod(method string) bool {
	return slices.Contains(PaymentMethods, method)
}

func IsAdjustmentType(kind string) bool {
	return slices.Contains(AdjustmentTypes, kind)
}

type Category struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Description  string     `json:"description" db:"description"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	ProductCount int        `json:"product_count" db:"product_count"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

type CategoryCreateRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type Product struct {
	ID            string     `json:"id" db:"id"`
	ProductCode   string     `json:"product_code" db:"product_code"`
	Barcode       string     `json:"barcode" db:"barcode"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	CategoryID    string     `json:"category_id" db:"category_id"`
	CategoryName  string     `json:"category_name" db:"category_name"`
	CostPrice     int64      `json:"cost_price" db:"cost_price"`
	SellingPrice  int64      `json:"selling_price" db:"selling_price"`
	StockQuantity int        `json:"stock_quantity" db:"stock_quantity"`
	MinStockLevel int        `json:"min_stock_level" db:"min_stock_level"`
	UnitsPerCase  int        `json:"units_per_case" db:"units_per_case"`
	CaseUnit      string     `json:"case_unit" db:"case_unit"`
	Unit          string     `json:"unit" db:"unit"`
	ImagePath     string     `json:"image_path" db:"image_path"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	SearchKey     string     `json:"-" db:"search_key"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}

func (p Product) StockInCases() int {
	cases, _ := SplitUnits(p.StockQuantity, p.UnitsPerCase)
	return cases
}

func (p Product) StockRemainder() int {
	_, rest := SplitUnits(p.StockQuantity, p.UnitsPerCase)
	return rest
}

func (p Product) ProfitMargin() int64 {
	return p.SellingPrice - p.CostPrice
}

// Sellable reports whether the POS may offer the product.
func (p Product) Sellable() bool {
	return p.IsActive && p.StockQuantity > 0
}

// ProductView is the API shape of a product with its derived stock figures.
type ProductView struct {
	Product
	IsLowStock     bool  `json:"is_low_stock"`
	StockInCases   int   `json:"stock_in_cases"`
	StockRemainder int   `json:"stock_remainder"`
	ProfitMargin   int64 `json:"profit_margin"`
}

func NewProductView(p Product) ProductView {
	return ProductView{
		Product:        p,
		IsLowStock:     p.IsLowStock(),
		StockInCases:   p.StockInCases(),
		StockRemainder: p.StockRemainder(),
		ProfitMargin:   p.ProfitMargin(),
	}
}

func NewProductViews(products []Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, NewProductView(p))
	}
	return views
}

type ProductFilter struct {
	CategoryID      string
	Query           string
	Barcode         string
	IncludeInactive bool
	LowStockOnly    bool
	InStockOnly     bool
	Limit           int
}

type ProductCreateRequest struct {
	ProductCode   string `json:"product_code" validate:"omitempty,max=20"`
	Barcode       string `json:"barcode" validate:"omitempty,max=50"`
	Name          string `json:"name" validate:"required,max=200"`
	Description   string `json:"description" validate:"max=1000"`
	CategoryID    string `json:"category_id" validate:"required"`
	CostPrice     int64  `json:"cost_price" validate:"gte=0"`
	SellingPrice  int64  `json:"selling_price" validate:"gte=0"`
	StockQuantity int    `json:"stock_quantity" validate:"gte=0"`
	MinStockLevel *int   `json:"min_stock_level,omitempty" validate:"omitempty,gte=0"`
	UnitsPerCase  *int   `json:"units_per_case,omitempty" validate:"omitempty,gte=1"`
	CaseUnit      string `json:"case_unit" validate:"max=20"`
	Unit          string `json:"unit" validate:"max=20"`
	ImagePath     string `json:"image_path" validate:"max=500"`
}

type ProductUpdateRequest struct {
	Barcode       *string `json:"barcode,omitempty" validate:"omitempty,max=50"`
	Name          *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	CategoryID    *string `json:"category_id,omitempty"`
	CostPrice     *int64  `json:"cost_price,omitempty" validate:"omitempty,gte=0"`
	SellingPrice  *int64  `json:"selling_price,omitempty" validate:"omitempty,gte=0"`
	MinStockLevel *int    `json:"min_stock_level,omitempty" validate:"omitempty,gte=0"`
	UnitsPerCase  *int    `json:"units_per_case,omitempty" validate:"omitempty,gte=1"`
	CaseUnit      *string `json:"case_unit,omitempty" validate:"omitempty,max=20"`
	Unit          *string `json:"unit,omitempty" validate:"omitempty,max=20"`
	ImagePath     *string `json:"image_path,omitempty" validate:"omitempty,max=500"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

type Customer struct {
	ID             string     `json:"id" db:"id"`
	FullName       string     `json:"full_name" db:"full_name"`
	Phone          string     `json:"phone" db:"phone"`
	Email          string     `json:"email" db:"email"`
	Address        string     `json:"address" db:"address"`
	Notes          string     `json:"notes" db:"notes"`
	TotalPurchases int64      `json:"total_purchases" db:"total_purchases"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

type CustomerCreateRequest struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"omitempty,len=10,numeric"`
	Email    string `json:"email" validate:"omitempty,email,max=100"`
	Address  string `json:"address" validate:"max=300"`
	Notes    string `json:"notes" validate:"max=500"`
}

type CustomerUpdateRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,len=10,numeric"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=100"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=500"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type Supplier struct {
	ID            string     `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	ContactPerson string     `json:"contact_person" db:"contact_person"`
	Phone         string     `json:"phone" db:"phone"`
	Email         string     `json:"email" db:"email"`
	Address       string     `json:"address" db:"address"`
	Notes         string     `json:"notes" db:"notes"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

type SupplierCreateRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"max=100"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	Email         string `json:"email" validate:"omitempty,email,max=100"`
	Address       string `json:"address" validate:"max=300"`
	Notes         string `json:"notes" validate:"max=500"`
}

type SupplierUpdateRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,max=200"`
	ContactPerson *string `json:"contact_person,omitempty" validate:"omitempty,max=100"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email,max=100"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=500"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

type Sale struct {
	ID              string     `json:"id" db:"id"`
	InvoiceNumber   string     `json:"invoice_number" db:"invoice_number"`
	CustomerID      *string    `json:"customer_id,omitempty" db:"customer_id"`
	CustomerName    string     `json:"customer_name,omitempty" db:"customer_name"`
	UserID          string     `json:"user_id" db:"user_id"`
	SaleDate        time.Time  `json:"sale_date" db:"sale_date"`
	SubTotal        int64      `json:"sub_total" db:"sub_total"`
	DiscountAmount  int64      `json:"discount_amount" db:"discount_amount"`
	DiscountPercent float64    `json:"discount_percent" db:"discount_percent"`
	TotalAmount     int64      `json:"total_amount" db:"total_amount"`
	PaidAmount      int64      `json:"paid_amount" db:"paid_amount"`
	ChangeAmount    int64      `json:"change_amount" db:"change_amount"`
	PaymentMethod   string     `json:"payment_method" db:"payment_method"`
	Status          string     `json:"status" db:"status"`
	Notes           string     `json:"notes" db:"notes"`
	CancelReason    string     `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	Items           []SaleItem `json:"items" db:"-"`
}

// IsWalkIn reports whether the sale has no customer attached.
func (s Sale) IsWalkIn() bool {
	return s.CustomerID == nil || *s.CustomerID == ""
}

func (s Sale) ItemCount() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

type SaleItem struct {
	ID             string `json:"id" db:"id"`
	SaleID         string `json:"sale_id" db:"sale_id"`
	ProductID      string `json:"product_id" db:"product_id"`
	ProductCode    string `json:"product_code" db:"product_code"`
	ProductName    string `json:"product_name" db:"product_name"`
	Quantity       int    `json:"quantity" db:"quantity"`
	UnitPrice      int64  `json:"unit_price" db:"unit_price"`
	DiscountAmount int64  `json:"discount_amount" db:"discount_amount"`
	TotalPrice     int64  `json:"total_price" db:"total_price"`
}

type SaleItemRequest struct {
	ProductID      string `json:"product_id" validate:"required"`
	Quantity       int    `json:"quantity" validate:"gte=1"`
	DiscountAmount int64  `json:"discount_amount" validate:"gte=0"`
}

type SaleCreateRequest struct {
	CustomerID      string            `json:"customer_id,omitempty"`
	PaymentMethod   string            `json:"payment_method" validate:"required,oneof=Cash BankTransfer Card Momo"`
	DiscountAmount  int64             `json:"discount_amount" validate:"gte=0"`
	DiscountPercent float64           `json:"discount_percent" validate:"gte=0,lte=100"`
	PaidAmount      int64             `json:"paid_amount" validate:"gte=0"`
	Notes           string            `json:"notes" validate:"max=500"`
	Items           []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

type SaleCancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type SaleFilter struct {
	From   time.Time
	To     time.Time
	Status string
	Limit  int
}

type StockIn struct {
	ID            string        `json:"id" db:"id"`
	StockInNumber string        `json:"stock_in_number" db:"stock_in_number"`
	SupplierID    *string       `json:"supplier_id,omitempty" db:"supplier_id"`
	SupplierName  string        `json:"supplier_name,omitempty" db:"supplier_name"`
	UserID        string        `json:"user_id" db:"user_id"`
	StockInDate   time.Time     `json:"stock_in_date" db:"stock_in_date"`
	TotalAmount   int64         `json:"total_amount" db:"total_amount"`
	TotalCases    int           `json:"total_cases" db:"-"`
	Notes         string        `json:"notes" db:"notes"`
	Status        string        `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	Items         []StockInItem `json:"items" db:"-"`
}

// Recalculate refreshes the totals derived from the items.
func (s *StockIn) Recalculate() {
	s.TotalAmount = 0
	s.TotalCases = 0
	for _, item := range s.Items {
		s.TotalAmount += item.TotalPrice
		s.TotalCases += item.CaseQuantity
	}
}

type StockInItem struct {
	ID           string `json:"id" db:"id"`
	StockInID    string `json:"stock_in_id" db:"stock_in_id"`
	ProductID    string `json:"product_id" db:"product_id"`
	ProductCode  string `json:"product_code" db:"product_code"`
	ProductName  string `json:"product_name" db:"product_name"`
	CaseQuantity int    `json:"case_quantity" db:"case_quantity"`
	UnitsPerCase int    `json:"units_per_case" db:"units_per_case"`
	Quantity     int    `json:"quantity" db:"quantity"`
	CaseUnit     string `json:"case_unit" db:"case_unit"`
	Unit         string `json:"unit" db:"unit"`
	CaseCost     int64  `json:"case_cost" db:"case_cost"`
	UnitCost     int64  `json:"unit_cost" db:"unit_cost"`
	TotalPrice   int64  `json:"total_price" db:"total_price"`
}

type StockInItemRequest struct {
	ProductID    string `json:"product_id" validate:"required"`
	CaseQuantity int    `json:"case_quantity" validate:"gte=1"`
	CaseCost     int64  `json:"case_cost" validate:"gte=0"`
}

type StockInCreateRequest struct {
	SupplierID string               `json:"supplier_id,omitempty"`
	Notes      string               `json:"notes" validate:"max=500"`
	Items      []StockInItemRequest `json:"items" validate:"required,min=1,dive"`
}

type InventoryAdjustment struct {
	ID             string    `json:"id" db:"id"`
	ProductID      string    `json:"product_id" db:"product_id"`
	ProductCode    string    `json:"product_code" db:"product_code"`
	ProductName    string    `json:"product_name" db:"product_name"`
	UserID         string    `json:"user_id" db:"user_id"`
	AdjustmentType string    `json:"adjustment_type" db:"adjustment_type"`
	QuantityChange int       `json:"quantity_change" db:"quantity_change"`
	StockAfter     int       `json:"stock_after" db:"stock_after"`
	Reason         string    `json:"reason" db:"reason"`
	AdjustmentDate time.Time `json:"adjustment_date" db:"adjustment_date"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type AdjustmentCreateRequest struct {
	ProductID      string `json:"product_id" validate:"required"`
	AdjustmentType string `json:"adjustment_type" validate:"required,oneof=Damage Expired Lost ReturnToSupplier Correction Gift"`
	QuantityChange int    `json:"quantity_change" validate:"ne=0"`
	Reason         string `json:"reason" validate:"max=500"`
}

type AdjustmentFilter struct {
	ProductID string
	From      time.Time
	To        time.Time
	Limit     int
}

type Role struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

type UserAccount struct {
	ID                 string     `json:"id" db:"id"`
	Username           string     `json:"username" db:"username"`
	PasswordHash       string     `json:"-" db:"password_hash"`
	FullName           string     `json:"full_name" db:"full_name"`
	Email              string     `json:"email" db:"email"`
	Phone              string     `json:"phone" db:"phone"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	MustChangePassword bool       `json:"must_change_password" db:"must_change_password"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	Roles              []string   `json:"roles" db:"-"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

func (u UserAccount) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

type UserCreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Phone    string `json:"phone" validate:"omitempty,len=10,numeric"`
	RoleID   string `json:"role_id,omitempty"`
}

type UserUpdateRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=100"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,len=10,numeric"`
}

type UserCreateResponse struct {
	User              UserAccount `json:"user"`
	TemporaryPassword string      `json:"temporary_password"`
}

type PasswordResetResponse struct {
	UserID            string `json:"user_id"`
	TemporaryPassword string `json:"temporary_password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken           string      `json:"access_token"`
	ExpiresAt             string      `json:"expires_at"`
	User                  UserAccount `json:"user"`
	RequirePasswordChange bool        `json:"require_password_change"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Actor is the authenticated caller attached to a request context.
type Actor struct {
	UserID             string
	Username           string
	Roles              []string
	MustChangePassword bool
}

func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

func (a Actor) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}

type TopSellingProduct struct {
	Rank         int    `json:"rank"`
	ProductID    string `json:"product_id" db:"product_id"`
	ProductCode  string `json:"product_code" db:"product_code"`
	ProductName  string `json:"product_name" db:"product_name"`
	QuantitySold int    `json:"quantity_sold" db:"quantity_sold"`
	TotalRevenue int64  `json:"total_revenue" db:"total_revenue"`
}

type DailyRevenue struct {
	Date    string `json:"date" db:"day"`
	Orders  int    `json:"orders" db:"orders"`
	Revenue int64  `json:"revenue" db:"revenue"`
}

// SalesSummaryQuery selects Completed sales in [From, To). Daily buckets use Location.
type SalesSummaryQuery struct {
	From     time.Time
	To       time.Time
	TopN     int
	Location *time.Location
}

type SalesSummary struct {
	TotalRevenue      int64               `json:"total_revenue"`
	TotalOrders       int                 `json:"total_orders"`
	TotalProductsSold int                 `json:"total_products_sold"`
	TopByQuantity     []TopSellingProduct `json:"top_by_quantity"`
	TopByRevenue      []TopSellingProduct `json:"top_by_revenue"`
	Daily             []DailyRevenue      `json:"daily"`
}

// DashboardSummary is the home screen snapshot. DailyRevenue covers the last
// seven store days oldest first; RecentSales holds the newest ten sales of
// the same window.
type DashboardSummary struct {
	TodayRevenue     int64               `json:"today_revenue"`
	TodaySalesCount  int                 `json:"today_sales_count"`
	TotalProducts    int                 `json:"total_products"`
	LowStockCount    int                 `json:"low_stock_count"`
	LowStockProducts []Product           `json:"low_stock_products"`
	RecentSales      []Sale              `json:"recent_sales"`
	DailyRevenue     []DailyRevenue      `json:"daily_revenue"`
	TopProducts      []TopSellingProduct `json:"top_products"`
	GeneratedAt      time.Time           `json:"generated_at"`
}

type SalesReport struct {
	From              string              `json:"from"`
	To                string              `json:"to"`
	TotalRevenue      int64               `json:"total_revenue"`
	TotalOrders       int                 `json:"total_orders"`
	AverageOrderValue int64               `json:"average_order_value"`
	TotalProductsSold int                 `json:"total_products_sold"`
	TopProducts       []TopSellingProduct `json:"top_products"`
	Daily             []DailyRevenue      `json:"daily"`
}

type AuditLog struct {
	ID            string    `json:"id" db:"id"`
	ActorUserID   string    `json:"actor_user_id" db:"actor_user_id"`
	ActorUsername string    `json:"actor_username" db:"actor_username"`
	Action        string    `json:"action" db:"action"`
	EntityType    string    `json:"entity_type" db:"entity_type"`
	EntityID      string    `json:"entity_id" db:"entity_id"`
	Detail        string    `json:"detail" db:"detail"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
