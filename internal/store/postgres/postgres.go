package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
	"fptmart/backend/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

const maxTxAttempts = 3

// Unique indexes whose values are generated inside the transaction. A
// violation on one of them means another writer took the same number.
var sequencedIndexes = map[string]bool{
	"sales_invoice_number_key": true,
	"stock_ins_number_key":     true,
	"products_code_key":        true,
}

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema and seed rows. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isRetryable(err) {
			break
		}
	}
	return mapError(err)
}

func (s *Store) runTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const categoryColumns = `
	c.id, c.name, c.description, c.is_active, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id AND p.is_active) AS product_count`

func (s *Store) ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	categories := make([]domain.Category, 0, 16)
	err := s.db.SelectContext(ctx, &categories, `
		SELECT `+categoryColumns+`
		FROM categories c
		WHERE $1 OR c.is_active
		ORDER BY c.name
	`, includeInactive)
	return categories, mapError(err)
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var category domain.Category
	if err := s.db.GetContext(ctx, &category, `SELECT `+categoryColumns+` FROM categories c WHERE c.id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &category, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, is_active, created_at)
		VALUES ($1, $2, $3, true, now())
	`, category.ID, category.Name, category.Description)
	if err != nil {
		return nil, mapError(err)
	}
	return s.GetCategory(ctx, category.ID)
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, is_active = $4, updated_at = now()
		WHERE id = $1
	`, category.ID, category.Name, category.Description, category.IsActive)
	if err := requireRow(res, err); err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, category.ID)
}

const productColumns = `
	p.id, p.product_code, p.barcode, p.name, p.description, p.category_id,
	COALESCE(c.name, '') AS category_name, p.cost_price, p.selling_price,
	p.stock_quantity, p.min_stock_level, p.units_per_case, p.case_unit, p.unit,
	p.image_path, p.is_active, p.search_key, p.created_at, p.updated_at`

const productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	conds := make([]string, 0, 6)
	args := make([]any, 0, 6)
	if !filter.IncludeInactive {
		conds = append(conds, "p.is_active")
	}
	if filter.CategoryID != "" {
		conds = append(conds, "p.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.LowStockOnly {
		conds = append(conds, "p.stock_quantity <= p.min_stock_level")
	}
	if filter.InStockOnly {
		conds = append(conds, "p.stock_quantity > 0")
	}
	if filter.Barcode != "" {
		conds = append(conds, "p.barcode = ?")
		args = append(args, filter.Barcode)
	}
	if q := domain.Fold(filter.Query); q != "" {
		conds = append(conds, "(strpos(p.search_key, ?) > 0 OR p.barcode = ?)")
		args = append(args, q, strings.TrimSpace(filter.Query))
	}

	query := `SELECT ` + productColumns + productFrom
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY p.name, p.product_code`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	products := make([]domain.Product, 0, 64)
	err := s.db.SelectContext(ctx, &products, s.db.Rebind(query), args...)
	return products, mapError(err)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return getProduct(ctx, s.db, `p.id = $1`, id)
}

func (s *Store) GetProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	return getProduct(ctx, s.db, `upper(p.product_code) = upper($1)`, code)
}

func getProduct(ctx context.Context, q sqlx.QueryerContext, cond string, arg any) (*domain.Product, error) {
	var product domain.Product
	if err := sqlx.GetContext(ctx, q, &product, `SELECT `+productColumns+productFrom+` WHERE `+cond, arg); err != nil {
		return nil, mapError(err)
	}
	return &product, nil
}

func (s *Store) ListProductsByBarcode(ctx context.Context, barcode string) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 2)
	if barcode == "" {
		return products, nil
	}
	err := s.db.SelectContext(ctx, &products, `
		SELECT `+productColumns+productFrom+`
		WHERE p.barcode = $1 AND p.is_active
		ORDER BY p.product_code
	`, barcode)
	return products, mapError(err)
}

const insertProduct = `
	INSERT INTO products (
		id, product_code, barcode, name, description, category_id, cost_price,
		selling_price, stock_quantity, min_stock_level, units_per_case, case_unit,
		unit, image_path, is_active, search_key, created_at
	) VALUES (
		:id, :product_code, :barcode, :name, :description, :category_id, :cost_price,
		:selling_price, :stock_quantity, :min_stock_level, :units_per_case, :case_unit,
		:unit, :image_path, true, :search_key, now()
	)`

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.CategoryID == "" {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	explicitCode := product.ProductCode != ""

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		draft := product
		var categoryExists bool
		if err := tx.GetContext(ctx, &categoryExists, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, draft.CategoryID); err != nil {
			return err
		}
		if !categoryExists {
			return store.ErrInvalidInput
		}

		if explicitCode {
			var taken bool
			if err := tx.GetContext(ctx, &taken, `SELECT EXISTS (SELECT 1 FROM products WHERE upper(product_code) = upper($1))`, draft.ProductCode); err != nil {
				return err
			}
			if taken {
				return store.ErrConflict
			}
		} else {
			var codes []string
			if err := tx.SelectContext(ctx, &codes, `SELECT product_code FROM products WHERE upper(product_code) LIKE $1`, domain.ProductCodePrefix+"%"); err != nil {
				return err
			}
			draft.ProductCode = domain.NextProductCode(codes)
		}

		draft.SearchKey = domain.ProductSearchKey(draft)
		_, err := tx.NamedExecContext(ctx, insertProduct, draft)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.CategoryID == "" {
		return nil, store.ErrInvalidInput
	}
	existing, err := s.GetProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	product.ProductCode = existing.ProductCode
	product.SearchKey = domain.ProductSearchKey(product)

	// stock_quantity is left alone; it only moves through stock-changing writes.
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE products SET
			barcode = :barcode, name = :name, description = :description,
			category_id = :category_id, cost_price = :cost_price,
			selling_price = :selling_price, min_stock_level = :min_stock_level,
			units_per_case = :units_per_case, case_unit = :case_unit, unit = :unit,
			image_path = :image_path, is_active = :is_active, search_key = :search_key,
			updated_at = now()
		WHERE id = :id
	`, product)
	if err := requireRow(res, err); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

const customerColumns = `
	id, full_name, phone, email, address, notes, total_purchases, is_active,
	created_at, updated_at`

func (s *Store) ListCustomers(ctx context.Context, query string, includeInactive bool) ([]domain.Customer, error) {
	query = strings.TrimSpace(query)
	customers := make([]domain.Customer, 0, 32)
	err := s.db.SelectContext(ctx, &customers, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE ($1 OR is_active)
			AND ($2 = '' OR strpos(search_key, $3) > 0 OR strpos(phone, $2) > 0)
		ORDER BY full_name
	`, includeInactive, query, domain.Fold(query))
	return customers, mapError(err)
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	if err := s.db.GetContext(ctx, &customer, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &customer, nil
}

func (s *Store) GetCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	if phone == "" {
		return nil, store.ErrNotFound
	}
	var customer domain.Customer
	if err := s.db.GetContext(ctx, &customer, `SELECT `+customerColumns+` FROM customers WHERE phone = $1`, phone); err != nil {
		return nil, mapError(err)
	}
	return &customer, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.FullName == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, full_name, phone, email, address, notes, total_purchases, is_active, search_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, true, $7, now())
	`, customer.ID, customer.FullName, customer.Phone, customer.Email, customer.Address, customer.Notes, domain.SearchKey(customer.FullName))
	if err != nil {
		return nil, mapError(err)
	}
	return s.GetCustomer(ctx, customer.ID)
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.FullName == "" {
		return nil, store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET full_name = $2, phone = $3, email = $4, address = $5, notes = $6,
			is_active = $7, search_key = $8, updated_at = now()
		WHERE id = $1
	`, customer.ID, customer.FullName, customer.Phone, customer.Email, customer.Address, customer.Notes, customer.IsActive, domain.SearchKey(customer.FullName))
	if err := requireRow(res, err); err != nil {
		return nil, err
	}
	return s.GetCustomer(ctx, customer.ID)
}

const supplierColumns = `
	id, name, contact_person, phone, email, address, notes, is_active, created_at, updated_at`

func (s *Store) ListSuppliers(ctx context.Context, activeOnly bool) ([]domain.Supplier, error) {
	suppliers := make([]domain.Supplier, 0, 16)
	err := s.db.SelectContext(ctx, &suppliers, `
		SELECT `+supplierColumns+`
		FROM suppliers
		WHERE NOT $1 OR is_active
		ORDER BY name
	`, activeOnly)
	return suppliers, mapError(err)
}

func (s *Store) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	var supplier domain.Supplier
	if err := s.db.GetContext(ctx, &supplier, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &supplier, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact_person, phone, email, address, notes, is_active, created_at)
		VALUES (:id, :name, :contact_person, :phone, :email, :address, :notes, true, now())
	`, supplier)
	if err != nil {
		return nil, mapError(err)
	}
	return s.GetSupplier(ctx, supplier.ID)
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE suppliers
		SET name = :name, contact_person = :contact_person, phone = :phone, email = :email,
			address = :address, notes = :notes, is_active = :is_active, updated_at = now()
		WHERE id = :id
	`, supplier)
	if err := requireRow(res, err); err != nil {
		return nil, err
	}
	return s.GetSupplier(ctx, supplier.ID)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_user_id, actor_username, action, entity_type, entity_id, detail, created_at)
		VALUES (:id, :actor_user_id, :actor_username, :action, :entity_type, :entity_id, :detail, :created_at)
	`, entry)
	return mapError(err)
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	conds, args := timeRange("created_at", from, to)
	query := `SELECT id, actor_user_id, actor_username, action, entity_type, entity_id, detail, created_at FROM audit_logs`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	logs := make([]domain.AuditLog, 0, max(limit, 16))
	err := s.db.SelectContext(ctx, &logs, s.db.Rebind(query), args...)
	return logs, mapError(err)
}

// timeRange renders the half-open [from, to) bounds with ? placeholders.
// A zero bound is left open.
func timeRange(column string, from time.Time, to time.Time) ([]string, []any) {
	conds := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if !from.IsZero() {
		conds = append(conds, column+" >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, column+" < ?")
		args = append(args, to.UTC())
	}
	return conds, args
}

func requireRow(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, store.ErrConflict)
		case "23503", "23514":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, store.ErrInvalidInput)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code == "40001" || pgErr.Code == "40P01" {
		return true
	}
	return isUniqueViolation(err) && sequencedIndexes[pgErr.ConstraintName]
}
