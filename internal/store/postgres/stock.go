package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
	"fptmart/backend/internal/xid"
)

const stockInColumns = `
	si.id, si.stock_in_number, si.supplier_id, COALESCE(sup.name, '') AS supplier_name,
	si.user_id, si.stock_in_date, si.total_amount, si.notes, si.status, si.created_at`

const stockInFrom = ` FROM stock_ins si LEFT JOIN suppliers sup ON sup.id = si.supplier_id`

const stockInItemColumns = `
	id, stock_in_id, product_id, product_code, product_name, case_quantity,
	units_per_case, quantity, case_unit, unit, case_cost, unit_cost, total_price`

func (s *Store) CreateStockIn(ctx context.Context, stockIn domain.StockIn, loc *time.Location) (*domain.StockIn, error) {
	if len(stockIn.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if stockIn.StockInDate.IsZero() {
		stockIn.StockInDate = time.Now().UTC()
	}
	if stockIn.ID == "" {
		stockIn.ID = xid.New("nk")
	}
	if stockIn.SupplierID != nil && *stockIn.SupplierID == "" {
		stockIn.SupplierID = nil
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if stockIn.SupplierID != nil {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, *stockIn.SupplierID); err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("supplier %s unavailable: %w", *stockIn.SupplierID, store.ErrInvalidInput)
			}
		}

		ids := make([]string, 0, len(stockIn.Items))
		for _, item := range stockIn.Items {
			if item.CaseQuantity < 1 || item.CaseCost < 0 {
				return store.ErrInvalidInput
			}
			ids = append(ids, item.ProductID)
		}
		locked, err := lockProducts(ctx, tx, ids)
		if err != nil {
			return err
		}

		draft := stockIn
		draft.Items = make([]domain.StockInItem, 0, len(stockIn.Items))
		for _, item := range stockIn.Items {
			product, ok := locked[item.ProductID]
			if !ok {
				return fmt.Errorf("product %s unavailable: %w", item.ProductID, store.ErrInvalidInput)
			}
			item.ID = xid.New("nki")
			item.StockInID = draft.ID
			item.ProductCode = product.ProductCode
			item.ProductName = product.Name
			item.UnitsPerCase = product.UnitsPerCase
			item.CaseUnit = product.CaseUnit
			item.Unit = product.Unit
			item.Quantity = domain.CaseToUnits(item.CaseQuantity, product.UnitsPerCase)
			item.UnitCost = domain.UnitCostFromCase(item.CaseCost, product.UnitsPerCase)
			item.TotalPrice = int64(item.CaseQuantity) * item.CaseCost
			draft.Items = append(draft.Items, item)
		}
		draft.Status = domain.StockInStatusCompleted
		draft.CreatedAt = time.Now().UTC()
		draft.Recalculate()

		day := draft.StockInDate.In(loc)
		last, err := latestDailyNumber(ctx, tx, "stock_ins", "stock_in_number", domain.StockInNumberPrefix, day)
		if err != nil {
			return err
		}
		draft.StockInNumber = domain.NextStockInNumber(day, last)

		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO stock_ins (id, stock_in_number, supplier_id, user_id, stock_in_date, total_amount, notes, status, created_at)
			VALUES (:id, :stock_in_number, :supplier_id, :user_id, :stock_in_date, :total_amount, :notes, :status, :created_at)
		`, draft); err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO stock_in_items (`+stockInItemColumns+`)
			VALUES (:id, :stock_in_id, :product_id, :product_code, :product_name, :case_quantity,
				:units_per_case, :quantity, :case_unit, :unit, :case_cost, :unit_cost, :total_price)
		`, draft.Items); err != nil {
			return err
		}

		// Lines are applied in order so a repeated product ends on its last cost.
		for _, item := range draft.Items {
			if _, err := tx.ExecContext(ctx, `
				UPDATE products
				SET stock_quantity = stock_quantity + $2, cost_price = $3, updated_at = now()
				WHERE id = $1
			`, item.ProductID, item.Quantity, item.UnitCost); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetStockIn(ctx, stockIn.ID)
}

func (s *Store) GetStockIn(ctx context.Context, id string) (*domain.StockIn, error) {
	var stockIn domain.StockIn
	if err := s.db.GetContext(ctx, &stockIn, `SELECT `+stockInColumns+stockInFrom+` WHERE si.id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	stockIns := []domain.StockIn{stockIn}
	if err := s.attachStockInItems(ctx, stockIns); err != nil {
		return nil, err
	}
	return &stockIns[0], nil
}

func (s *Store) ListStockIns(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.StockIn, error) {
	conds, args := timeRange("si.stock_in_date", from, to)
	query := `SELECT ` + stockInColumns + stockInFrom
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY si.stock_in_date DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	stockIns := make([]domain.StockIn, 0, 32)
	if err := s.db.SelectContext(ctx, &stockIns, s.db.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}
	if err := s.attachStockInItems(ctx, stockIns); err != nil {
		return nil, err
	}
	return stockIns, nil
}

func (s *Store) attachStockInItems(ctx context.Context, stockIns []domain.StockIn) error {
	if len(stockIns) == 0 {
		return nil
	}
	ids := make([]string, 0, len(stockIns))
	for _, stockIn := range stockIns {
		ids = append(ids, stockIn.ID)
	}

	items := make([]domain.StockInItem, 0, len(stockIns)*3)
	if err := s.db.SelectContext(ctx, &items, `
		SELECT `+stockInItemColumns+` FROM stock_in_items WHERE stock_in_id = ANY($1) ORDER BY stock_in_id, product_code
	`, ids); err != nil {
		return mapError(err)
	}

	byStockIn := make(map[string][]domain.StockInItem, len(stockIns))
	for _, item := range items {
		byStockIn[item.StockInID] = append(byStockIn[item.StockInID], item)
	}
	for i := range stockIns {
		stockIns[i].Items = byStockIn[stockIns[i].ID]
		if stockIns[i].Items == nil {
			stockIns[i].Items = []domain.StockInItem{}
		}
		// Recompute case totals; the amount stays as stored.
		amount := stockIns[i].TotalAmount
		stockIns[i].Recalculate()
		stockIns[i].TotalAmount = amount
	}
	return nil
}

const adjustmentColumns = `
	a.id, a.product_id, p.product_code, p.name AS product_name, a.user_id,
	a.adjustment_type, a.quantity_change, a.stock_after, a.reason,
	a.adjustment_date, a.created_at`

func (s *Store) CreateAdjustment(ctx context.Context, adjustment domain.InventoryAdjustment) (*domain.InventoryAdjustment, error) {
	if adjustment.QuantityChange == 0 || !domain.IsAdjustmentType(adjustment.AdjustmentType) {
		return nil, store.ErrInvalidInput
	}
	if adjustment.ID == "" {
		adjustment.ID = xid.New("adj")
	}
	if adjustment.AdjustmentDate.IsZero() {
		adjustment.AdjustmentDate = time.Now().UTC()
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := lockProducts(ctx, tx, []string{adjustment.ProductID})
		if err != nil {
			return err
		}
		product, ok := locked[adjustment.ProductID]
		if !ok {
			return store.ErrNotFound
		}
		newStock := product.StockQuantity + adjustment.QuantityChange
		if newStock < 0 {
			return fmt.Errorf("product %s has %d left: %w", product.ProductCode, product.StockQuantity, store.ErrInsufficientStock)
		}

		draft := adjustment
		draft.StockAfter = newStock
		draft.CreatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock_quantity = $2, updated_at = now() WHERE id = $1
		`, product.ID, newStock); err != nil {
			return err
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO inventory_adjustments (
				id, product_id, user_id, adjustment_type, quantity_change, stock_after,
				reason, adjustment_date, created_at
			) VALUES (
				:id, :product_id, :user_id, :adjustment_type, :quantity_change, :stock_after,
				:reason, :adjustment_date, :created_at
			)
		`, draft)
		return err
	})
	if err != nil {
		return nil, err
	}

	var created domain.InventoryAdjustment
	if err := s.db.GetContext(ctx, &created, `
		SELECT `+adjustmentColumns+`
		FROM inventory_adjustments a JOIN products p ON p.id = a.product_id
		WHERE a.id = $1
	`, adjustment.ID); err != nil {
		return nil, mapError(err)
	}
	return &created, nil
}

func (s *Store) ListAdjustments(ctx context.Context, filter domain.AdjustmentFilter) ([]domain.InventoryAdjustment, error) {
	conds, args := timeRange("a.adjustment_date", filter.From, filter.To)
	if filter.ProductID != "" {
		conds = append(conds, "a.product_id = ?")
		args = append(args, filter.ProductID)
	}
	query := `SELECT ` + adjustmentColumns + ` FROM inventory_adjustments a JOIN products p ON p.id = a.product_id`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY a.adjustment_date DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	adjustments := make([]domain.InventoryAdjustment, 0, 32)
	err := s.db.SelectContext(ctx, &adjustments, s.db.Rebind(query), args...)
	return adjustments, mapError(err)
}
