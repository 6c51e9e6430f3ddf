package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
	"fptmart/backend/internal/xid"
)

const saleColumns = `
	s.id, s.invoice_number, s.customer_id, COALESCE(c.full_name, '') AS customer_name,
	s.user_id, s.sale_date, s.sub_total, s.discount_amount, s.discount_percent,
	s.total_amount, s.paid_amount, s.change_amount, s.payment_method, s.status,
	s.notes, s.cancel_reason, s.cancelled_at, s.created_at`

const saleFrom = ` FROM sales s LEFT JOIN customers c ON c.id = s.customer_id`

const saleItemColumns = `
	id, sale_id, product_id, product_code, product_name, quantity, unit_price,
	discount_amount, total_price`

// lockedProduct is the slice of a product row needed while stock is locked.
type lockedProduct struct {
	ID            string `db:"id"`
	ProductCode   string `db:"product_code"`
	Name          string `db:"name"`
	StockQuantity int    `db:"stock_quantity"`
	UnitsPerCase  int    `db:"units_per_case"`
	CaseUnit      string `db:"case_unit"`
	Unit          string `db:"unit"`
	IsActive      bool   `db:"is_active"`
}

// lockProducts takes row locks in id order so concurrent writers queue
// instead of deadlocking.
func lockProducts(ctx context.Context, tx *sqlx.Tx, ids []string) (map[string]lockedProduct, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	rows := make([]lockedProduct, 0, len(sorted))
	err := tx.SelectContext(ctx, &rows, `
		SELECT id, product_code, name, stock_quantity, units_per_case, case_unit, unit, is_active
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, sorted)
	if err != nil {
		return nil, err
	}

	locked := make(map[string]lockedProduct, len(rows))
	for _, row := range rows {
		locked[row.ID] = row
	}
	return locked, nil
}

func latestDailyNumber(ctx context.Context, tx *sqlx.Tx, table string, column string, prefix string, day time.Time) (string, error) {
	var numbers []string
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s LIKE $1`, column, table, column)
	if err := tx.SelectContext(ctx, &numbers, query, domain.DailyStem(prefix, day)+"%"); err != nil {
		return "", err
	}
	return domain.LatestDailyNumber(prefix, day, numbers), nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, loc *time.Location) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if sale.SaleDate.IsZero() {
		sale.SaleDate = time.Now().UTC()
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.IsWalkIn() {
		sale.CustomerID = nil
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if !sale.IsWalkIn() {
			var active bool
			err := tx.GetContext(ctx, &active, `SELECT is_active FROM customers WHERE id = $1 FOR UPDATE`, *sale.CustomerID)
			if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
				return fmt.Errorf("customer %s unavailable: %w", *sale.CustomerID, store.ErrInvalidInput)
			}
			if err != nil {
				return err
			}
		}

		demand := make(map[string]int, len(sale.Items))
		ids := make([]string, 0, len(sale.Items))
		for _, item := range sale.Items {
			if item.Quantity < 1 {
				return store.ErrInvalidInput
			}
			demand[item.ProductID] += item.Quantity
			ids = append(ids, item.ProductID)
		}

		locked, err := lockProducts(ctx, tx, ids)
		if err != nil {
			return err
		}
		for productID, qty := range demand {
			product, ok := locked[productID]
			if !ok || !product.IsActive {
				return fmt.Errorf("product %s unavailable: %w", productID, store.ErrInvalidInput)
			}
			if product.StockQuantity < qty {
				return fmt.Errorf("product %s has %d left: %w", product.ProductCode, product.StockQuantity, store.ErrInsufficientStock)
			}
		}

		last, err := latestDailyNumber(ctx, tx, "sales", "invoice_number", domain.InvoicePrefix, sale.SaleDate.In(loc))
		if err != nil {
			return err
		}
		draft := sale
		draft.InvoiceNumber = domain.NextInvoiceNumber(sale.SaleDate.In(loc), last)
		draft.Status = domain.SaleStatusCompleted
		draft.CreatedAt = time.Now().UTC()
		draft.Items = make([]domain.SaleItem, 0, len(sale.Items))
		for _, item := range sale.Items {
			item.ID = xid.New("si")
			item.SaleID = draft.ID
			draft.Items = append(draft.Items, item)
		}

		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO sales (
				id, invoice_number, customer_id, user_id, sale_date, sub_total,
				discount_amount, discount_percent, total_amount, paid_amount,
				change_amount, payment_method, status, notes, created_at
			) VALUES (
				:id, :invoice_number, :customer_id, :user_id, :sale_date, :sub_total,
				:discount_amount, :discount_percent, :total_amount, :paid_amount,
				:change_amount, :payment_method, :status, :notes, :created_at
			)
		`, draft); err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO sale_items (`+saleItemColumns+`)
			VALUES (:id, :sale_id, :product_id, :product_code, :product_name, :quantity,
				:unit_price, :discount_amount, :total_price)
		`, draft.Items); err != nil {
			return err
		}

		for productID, qty := range demand {
			if _, err := tx.ExecContext(ctx, `
				UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = now()
				WHERE id = $1
			`, productID, qty); err != nil {
				return err
			}
		}
		if !draft.IsWalkIn() {
			if _, err := tx.ExecContext(ctx, `
				UPDATE customers SET total_purchases = total_purchases + $2, updated_at = now()
				WHERE id = $1
			`, *draft.CustomerID, draft.TotalAmount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSale(ctx, sale.ID)
}

func (s *Store) CancelSale(ctx context.Context, id string, reason string, at time.Time) (*domain.Sale, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current struct {
			Status      string  `db:"status"`
			CustomerID  *string `db:"customer_id"`
			TotalAmount int64   `db:"total_amount"`
		}
		if err := tx.GetContext(ctx, &current, `
			SELECT status, customer_id, total_amount FROM sales WHERE id = $1 FOR UPDATE
		`, id); err != nil {
			return err
		}
		if current.Status != domain.SaleStatusCompleted {
			return store.ErrInvalidState
		}

		items := make([]domain.SaleItem, 0, 8)
		if err := tx.SelectContext(ctx, &items, `SELECT `+saleItemColumns+` FROM sale_items WHERE sale_id = $1`, id); err != nil {
			return err
		}
		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		if _, err := lockProducts(ctx, tx, ids); err != nil {
			return err
		}
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, `
				UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = now()
				WHERE id = $1
			`, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if current.CustomerID != nil && *current.CustomerID != "" {
			if _, err := tx.ExecContext(ctx, `
				UPDATE customers SET total_purchases = GREATEST(0, total_purchases - $2), updated_at = now()
				WHERE id = $1
			`, *current.CustomerID, current.TotalAmount); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE sales SET status = $2, cancel_reason = $3, cancelled_at = $4
			WHERE id = $1
		`, id, domain.SaleStatusCancelled, reason, at.UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetSale(ctx, id)
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.getSale(ctx, `s.id = $1`, id)
}

func (s *Store) GetSaleByInvoice(ctx context.Context, invoiceNumber string) (*domain.Sale, error) {
	return s.getSale(ctx, `s.invoice_number = $1`, invoiceNumber)
}

func (s *Store) getSale(ctx context.Context, cond string, arg any) (*domain.Sale, error) {
	var sale domain.Sale
	if err := s.db.GetContext(ctx, &sale, `SELECT `+saleColumns+saleFrom+` WHERE `+cond, arg); err != nil {
		return nil, mapError(err)
	}
	sales := []domain.Sale{sale}
	if err := s.attachSaleItems(ctx, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	conds, args := timeRange("s.sale_date", filter.From, filter.To)
	if filter.Status != "" {
		conds = append(conds, "s.status = ?")
		args = append(args, filter.Status)
	}
	query := `SELECT ` + saleColumns + saleFrom
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY s.sale_date DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	sales := make([]domain.Sale, 0, 64)
	if err := s.db.SelectContext(ctx, &sales, s.db.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}
	if err := s.attachSaleItems(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) attachSaleItems(ctx context.Context, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sales))
	for _, sale := range sales {
		ids = append(ids, sale.ID)
	}

	items := make([]domain.SaleItem, 0, len(sales)*3)
	if err := s.db.SelectContext(ctx, &items, `
		SELECT `+saleItemColumns+` FROM sale_items WHERE sale_id = ANY($1) ORDER BY sale_id, product_code
	`, ids); err != nil {
		return mapError(err)
	}

	bySale := make(map[string][]domain.SaleItem, len(sales))
	for _, item := range items {
		bySale[item.SaleID] = append(bySale[item.SaleID], item)
	}
	for i := range sales {
		sales[i].Items = bySale[sales[i].ID]
		if sales[i].Items == nil {
			sales[i].Items = []domain.SaleItem{}
		}
	}
	return nil
}

func (s *Store) SummarizeSales(ctx context.Context, query domain.SalesSummaryQuery) (domain.SalesSummary, error) {
	loc := query.Location
	if loc == nil {
		loc = time.UTC
	}
	conds, args := timeRange("s.sale_date", query.From, query.To)
	conds = append([]string{"s.status = ?"}, conds...)
	args = append([]any{domain.SaleStatusCompleted}, args...)
	where := ` WHERE ` + strings.Join(conds, " AND ")

	var summary domain.SalesSummary
	var totals struct {
		Revenue int64 `db:"revenue"`
		Orders  int   `db:"orders"`
	}
	if err := s.db.GetContext(ctx, &totals, s.db.Rebind(`
		SELECT COALESCE(SUM(s.total_amount), 0)::bigint AS revenue, COUNT(*) AS orders
		FROM sales s`+where), args...); err != nil {
		return summary, mapError(err)
	}
	summary.TotalRevenue = totals.Revenue
	summary.TotalOrders = totals.Orders

	if err := s.db.GetContext(ctx, &summary.TotalProductsSold, s.db.Rebind(`
		SELECT COALESCE(SUM(si.quantity), 0)::bigint
		FROM sale_items si JOIN sales s ON s.id = si.sale_id`+where), args...); err != nil {
		return summary, mapError(err)
	}

	topQuery := `
		SELECT si.product_id, MAX(si.product_code) AS product_code, MAX(si.product_name) AS product_name,
			SUM(si.quantity)::bigint AS quantity_sold, SUM(si.total_price)::bigint AS total_revenue
		FROM sale_items si JOIN sales s ON s.id = si.sale_id` + where + `
		GROUP BY si.product_id
		ORDER BY %s, product_code`
	limit := ""
	if query.TopN > 0 {
		limit = fmt.Sprintf(" LIMIT %d", query.TopN)
	}

	byQuantity := make([]domain.TopSellingProduct, 0, max(query.TopN, 8))
	if err := s.db.SelectContext(ctx, &byQuantity, s.db.Rebind(fmt.Sprintf(topQuery, "quantity_sold DESC, total_revenue DESC")+limit), args...); err != nil {
		return summary, mapError(err)
	}
	byRevenue := make([]domain.TopSellingProduct, 0, max(query.TopN, 8))
	if err := s.db.SelectContext(ctx, &byRevenue, s.db.Rebind(fmt.Sprintf(topQuery, "total_revenue DESC, quantity_sold DESC")+limit), args...); err != nil {
		return summary, mapError(err)
	}
	summary.TopByQuantity = withRanks(byQuantity)
	summary.TopByRevenue = withRanks(byRevenue)

	dailyArgs := append([]any{loc.String()}, args...)
	summary.Daily = make([]domain.DailyRevenue, 0, 31)
	if err := s.db.SelectContext(ctx, &summary.Daily, s.db.Rebind(`
		SELECT to_char(s.sale_date AT TIME ZONE ?, 'YYYY-MM-DD') AS day,
			COUNT(*) AS orders, SUM(s.total_amount)::bigint AS revenue
		FROM sales s`+where+`
		GROUP BY day
		ORDER BY day`), dailyArgs...); err != nil {
		return summary, mapError(err)
	}
	return summary, nil
}

func withRanks(products []domain.TopSellingProduct) []domain.TopSellingProduct {
	for i := range products {
		products[i].Rank = i + 1
	}
	return products
}
