package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
)

func (s *Service) CreateStockIn(ctx context.Context, req domain.StockInCreateRequest) (domain.StockIn, error) {
	actor, err := s.requireRole(ctx, rolesInventory...)
	if err != nil {
		return domain.StockIn{}, err
	}
	req.SupplierID = strings.TrimSpace(req.SupplierID)
	if err := s.check(req); err != nil {
		return domain.StockIn{}, err
	}

	stockIn := domain.StockIn{
		UserID:      actor.UserID,
		StockInDate: s.now().UTC(),
		Notes:       strings.TrimSpace(req.Notes),
		Items:       make([]domain.StockInItem, 0, len(req.Items)),
	}
	if req.SupplierID != "" {
		if _, err := s.repo.GetSupplier(ctx, req.SupplierID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.StockIn{}, invalidField("supplier_id", "does not exist")
			}
			return domain.StockIn{}, err
		}
		supplierID := req.SupplierID
		stockIn.SupplierID = &supplierID
	}

	for i, item := range req.Items {
		productID := strings.TrimSpace(item.ProductID)
		if _, err := s.repo.GetProduct(ctx, productID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.StockIn{}, invalidField(fmt.Sprintf("items[%d].product_id", i), "does not exist")
			}
			return domain.StockIn{}, err
		}
		stockIn.Items = append(stockIn.Items, domain.StockInItem{
			ProductID:    productID,
			CaseQuantity: item.CaseQuantity,
			CaseCost:     item.CaseCost,
		})
	}

	created, err := s.repo.CreateStockIn(ctx, stockIn, s.loc)
	if err != nil {
		return domain.StockIn{}, err
	}

	s.logAudit(ctx, "stock_in_create", "stock_in", created.ID, fmt.Sprintf("number=%s,total=%d,cases=%d", created.StockInNumber, created.TotalAmount, created.TotalCases))
	s.invalidateDashboard(ctx)
	return *created, nil
}

func (s *Service) GetStockIn(ctx context.Context, id string) (domain.StockIn, error) {
	if _, err := s.requireRole(ctx, rolesInventory...); err != nil {
		return domain.StockIn{}, err
	}
	stockIn, err := s.repo.GetStockIn(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.StockIn{}, err
	}
	return *stockIn, nil
}

func (s *Service) ListStockIns(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.StockIn, error) {
	if _, err := s.requireRole(ctx, rolesInventory...); err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, invalidField("to", "must be after from")
	}
	return s.repo.ListStockIns(ctx, from, to, limit)
}

// AdjustInventory applies a signed stock correction outside of sales and
// receiving. Stock never goes below zero.
func (s *Service) AdjustInventory(ctx context.Context, req domain.AdjustmentCreateRequest) (domain.InventoryAdjustment, error) {
	actor, err := s.requireRole(ctx, rolesInventory...)
	if err != nil {
		return domain.InventoryAdjustment{}, err
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.check(req); err != nil {
		return domain.InventoryAdjustment{}, err
	}
	if req.Reason == "" && (req.AdjustmentType == domain.AdjustmentCorrection || req.AdjustmentType == domain.AdjustmentGift) {
		return domain.InventoryAdjustment{}, invalidField("reason", "is required for "+req.AdjustmentType)
	}

	created, err := s.repo.CreateAdjustment(ctx, domain.InventoryAdjustment{
		ProductID:      req.ProductID,
		UserID:         actor.UserID,
		AdjustmentType: req.AdjustmentType,
		QuantityChange: req.QuantityChange,
		Reason:         req.Reason,
		AdjustmentDate: s.now().UTC(),
	})
	if err != nil {
		return domain.InventoryAdjustment{}, err
	}

	s.logAudit(ctx, "inventory_adjust", "product", created.ProductID, fmt.Sprintf("type=%s,change=%d,stock_after=%d", created.AdjustmentType, created.QuantityChange, created.StockAfter))
	s.invalidateDashboard(ctx)
	return *created, nil
}

func (s *Service) ListAdjustments(ctx context.Context, filter domain.AdjustmentFilter) ([]domain.InventoryAdjustment, error) {
	if _, err := s.requireRole(ctx, rolesInventory...); err != nil {
		return nil, err
	}
	filter.ProductID = strings.TrimSpace(filter.ProductID)
	return s.repo.ListAdjustments(ctx, filter)
}
