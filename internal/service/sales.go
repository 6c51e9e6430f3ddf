package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
)

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, err := s.requireRole(ctx, rolesSales...)
	if err != nil {
		return domain.Sale{}, err
	}
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if err := s.check(req); err != nil {
		return domain.Sale{}, err
	}

	lines := mergeSaleLines(req.Items)
	items := make([]domain.SaleItem, 0, len(lines))
	for _, line := range lines {
		product, err := s.repo.GetProduct(ctx, line.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.Sale{}, invalidField("items", fmt.Sprintf("product %s does not exist", line.ProductID))
		}
		if err != nil {
			return domain.Sale{}, err
		}
		if !product.IsActive {
			return domain.Sale{}, invalidField("items", fmt.Sprintf("product %s is inactive", product.ProductCode))
		}
		items = append(items, domain.SaleItem{
			ProductID:      product.ID,
			ProductCode:    product.ProductCode,
			ProductName:    product.Name,
			Quantity:       line.Quantity,
			UnitPrice:      product.SellingPrice,
			DiscountAmount: line.DiscountAmount,
			TotalPrice:     domain.LineTotal(line.Quantity, product.SellingPrice, line.DiscountAmount),
		})
	}

	totals, err := domain.ComputeSaleTotals(items, req.DiscountAmount, req.DiscountPercent, req.PaymentMethod, req.PaidAmount)
	if errors.Is(err, domain.ErrInsufficientPayment) {
		return domain.Sale{}, invalidField("paid_amount", err.Error())
	}
	if err != nil {
		return domain.Sale{}, err
	}

	sale := domain.Sale{
		UserID:          actor.UserID,
		SaleDate:        s.now().UTC(),
		SubTotal:        totals.SubTotal,
		DiscountAmount:  totals.DiscountAmount,
		DiscountPercent: totals.DiscountPercent,
		TotalAmount:     totals.TotalAmount,
		PaidAmount:      totals.PaidAmount,
		ChangeAmount:    totals.ChangeAmount,
		PaymentMethod:   req.PaymentMethod,
		Notes:           strings.TrimSpace(req.Notes),
		Items:           items,
	}
	if req.CustomerID != "" {
		customerID := req.CustomerID
		sale.CustomerID = &customerID
	}

	created, err := s.repo.CreateSale(ctx, sale, s.loc)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf("invoice=%s,total=%d,method=%s,items=%d", created.InvoiceNumber, created.TotalAmount, created.PaymentMethod, created.ItemCount()))
	s.invalidateDashboard(ctx)
	s.logger.InfoContext(ctx, "sale completed",
		slog.String("invoice", created.InvoiceNumber),
		slog.Int64("total", created.TotalAmount),
		slog.String("cashier", actor.Username))
	return *created, nil
}

// mergeSaleLines folds repeated products into one line, keeping the order
// in which each product first appeared.
func mergeSaleLines(items []domain.SaleItemRequest) []domain.SaleItemRequest {
	merged := make([]domain.SaleItemRequest, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			merged[i].DiscountAmount += item.DiscountAmount
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

func (s *Service) CancelSale(ctx context.Context, id string, req domain.SaleCancelRequest) (domain.Sale, error) {
	if _, err := s.requireRole(ctx, rolesManagement...); err != nil {
		return domain.Sale{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Sale{}, err
	}

	cancelled, err := s.repo.CancelSale(ctx, strings.TrimSpace(id), strings.TrimSpace(req.Reason), s.now().UTC())
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_cancel", "sale", cancelled.ID, fmt.Sprintf("invoice=%s,total=%d,reason=%s", cancelled.InvoiceNumber, cancelled.TotalAmount, cancelled.CancelReason))
	s.invalidateDashboard(ctx)
	return *cancelled, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	if _, err := s.requireRole(ctx, rolesSales...); err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) GetSaleByInvoice(ctx context.Context, invoiceNumber string) (domain.Sale, error) {
	if _, err := s.requireRole(ctx, rolesSales...); err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSaleByInvoice(ctx, strings.ToUpper(strings.TrimSpace(invoiceNumber)))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	if _, err := s.requireRole(ctx, rolesSales...); err != nil {
		return nil, err
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, invalidField("to", "must be after from")
	}
	return s.repo.ListSales(ctx, filter)
}

// ListAllSales returns every sale, newest first.
func (s *Service) ListAllSales(ctx context.Context) ([]domain.Sale, error) {
	return s.ListSales(ctx, domain.SaleFilter{})
}

func (s *Service) TodayRevenue(ctx context.Context) (int64, error) {
	summary, err := s.todaySummary(ctx)
	if err != nil {
		return 0, err
	}
	return summary.TotalRevenue, nil
}

func (s *Service) TodaySalesCount(ctx context.Context) (int, error) {
	summary, err := s.todaySummary(ctx)
	if err != nil {
		return 0, err
	}
	return summary.TotalOrders, nil
}

func (s *Service) todaySummary(ctx context.Context) (domain.SalesSummary, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.SalesSummary{}, err
	}
	from, to := s.dayBounds(s.now())
	return s.repo.SummarizeSales(ctx, domain.SalesSummaryQuery{From: from, To: to, Location: s.loc})
}
