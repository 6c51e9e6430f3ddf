package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fptmart/backend/internal/domain"
)

const (
	dashboardTopProducts  = 5
	dashboardTopWindow    = 30
	dashboardRecentDays   = 7
	dashboardRecentSales  = 10
	dashboardLowStockRows = 5
	reportTopProducts     = 10
	reportDefaultDays     = 30
	auditDefaultLimit     = 100
)

// Dashboard returns today's figures, served from the cache when a snapshot
// for the current version exists.
func (s *Service) Dashboard(ctx context.Context) (domain.DashboardSummary, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.DashboardSummary{}, err
	}

	day := s.now().In(s.loc).Format(time.DateOnly)
	version, cacheable := s.dashboardVersion(ctx)
	if cacheable {
		cached, ok, err := s.cache.Get(ctx, day, version)
		if err != nil {
			s.logger.WarnContext(ctx, "read dashboard cache failed", slog.Any("error", err))
		}
		if ok {
			return *cached, nil
		}
	}
	return s.buildDashboard(ctx, day, version, cacheable)
}

// WarmDashboard recomputes today's snapshot and stores it regardless of what
// the cache holds.
func (s *Service) WarmDashboard(ctx context.Context) (domain.DashboardSummary, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.DashboardSummary{}, err
	}
	version, cacheable := s.dashboardVersion(ctx)
	return s.buildDashboard(ctx, s.now().In(s.loc).Format(time.DateOnly), version, cacheable)
}

// dashboardVersion reads the cache version before any figures are computed.
// A snapshot is only ever stored under the version observed here, so a sale
// committed during the build bumps past it and the snapshot is never served.
func (s *Service) dashboardVersion(ctx context.Context) (int64, bool) {
	version, err := s.cache.Version(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "read dashboard cache version failed", slog.Any("error", err))
		return 0, false
	}
	return version, true
}

func (s *Service) buildDashboard(ctx context.Context, day string, version int64, cacheable bool) (domain.DashboardSummary, error) {
	now := s.now()
	todayStart, todayEnd := s.dayBounds(now)
	windowStart := todayStart.AddDate(0, 0, -(dashboardTopWindow - 1))
	recentStart := todayStart.AddDate(0, 0, -(dashboardRecentDays - 1))

	var (
		summary  domain.DashboardSummary
		today    domain.SalesSummary
		window   domain.SalesSummary
		lowStock []domain.Product
		active   []domain.Product
		recent   []domain.Sale
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		today, err = s.repo.SummarizeSales(gctx, domain.SalesSummaryQuery{From: todayStart, To: todayEnd, Location: s.loc})
		return err
	})
	g.Go(func() error {
		var err error
		lowStock, err = s.repo.ListProducts(gctx, domain.ProductFilter{LowStockOnly: true})
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.repo.ListProducts(gctx, domain.ProductFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.ListSales(gctx, domain.SaleFilter{From: recentStart, To: todayEnd, Limit: dashboardRecentSales})
		return err
	})
	g.Go(func() error {
		var err error
		window, err = s.repo.SummarizeSales(gctx, domain.SalesSummaryQuery{
			From:     windowStart,
			To:       todayEnd,
			TopN:     dashboardTopProducts,
			Location: s.loc,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardSummary{}, err
	}

	summary.TodayRevenue = today.TotalRevenue
	summary.TodaySalesCount = today.TotalOrders
	summary.TotalProducts = len(active)
	summary.LowStockCount = len(lowStock)
	summary.LowStockProducts = lowStock[:min(len(lowStock), dashboardLowStockRows)]
	summary.RecentSales = recent
	summary.DailyRevenue = dailySeries(window.Daily, recentStart, dashboardRecentDays)
	summary.TopProducts = window.TopByRevenue
	if summary.TopProducts == nil {
		summary.TopProducts = []domain.TopSellingProduct{}
	}
	if summary.LowStockProducts == nil {
		summary.LowStockProducts = []domain.Product{}
	}
	if summary.RecentSales == nil {
		summary.RecentSales = []domain.Sale{}
	}
	summary.GeneratedAt = now.UTC()

	if cacheable {
		if err := s.cache.Set(ctx, day, version, &summary, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "write dashboard cache failed", slog.Any("error", err))
		}
	}
	return summary, nil
}

// dailySeries expands sparse daily buckets into one entry per day starting
// at from, oldest first, with zero entries for days without sales.
func dailySeries(buckets []domain.DailyRevenue, from time.Time, days int) []domain.DailyRevenue {
	byDate := make(map[string]domain.DailyRevenue, len(buckets))
	for _, b := range buckets {
		byDate[b.Date] = b
	}
	series := make([]domain.DailyRevenue, 0, days)
	for i := range days {
		date := from.AddDate(0, 0, i).Format(time.DateOnly)
		entry, ok := byDate[date]
		if !ok {
			entry = domain.DailyRevenue{Date: date}
		}
		series = append(series, entry)
	}
	return series
}

// SalesReport aggregates Completed sales between two calendar dates, both
// inclusive. Empty dates default to the last 30 days ending today.
func (s *Service) SalesReport(ctx context.Context, fromDate string, toDate string) (domain.SalesReport, error) {
	if _, err := s.requireRole(ctx, rolesManagement...); err != nil {
		return domain.SalesReport{}, err
	}

	todayStart, _ := s.dayBounds(s.now())
	to := todayStart
	if strings.TrimSpace(toDate) != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(toDate), s.loc)
		if err != nil {
			return domain.SalesReport{}, invalidField("to", "must be a date in YYYY-MM-DD form")
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -reportDefaultDays)
	if strings.TrimSpace(fromDate) != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(fromDate), s.loc)
		if err != nil {
			return domain.SalesReport{}, invalidField("from", "must be a date in YYYY-MM-DD form")
		}
		from = parsed
	}
	if from.After(to) {
		return domain.SalesReport{}, invalidField("to", "must not be before from")
	}

	summary, err := s.repo.SummarizeSales(ctx, domain.SalesSummaryQuery{
		From:     from,
		To:       to.AddDate(0, 0, 1),
		TopN:     reportTopProducts,
		Location: s.loc,
	})
	if err != nil {
		return domain.SalesReport{}, err
	}

	report := domain.SalesReport{
		From:              from.Format(time.DateOnly),
		To:                to.Format(time.DateOnly),
		TotalRevenue:      summary.TotalRevenue,
		TotalOrders:       summary.TotalOrders,
		TotalProductsSold: summary.TotalProductsSold,
		TopProducts:       summary.TopByQuantity,
		Daily:             summary.Daily,
	}
	if report.TotalOrders > 0 {
		report.AverageOrderValue = report.TotalRevenue / int64(report.TotalOrders)
	}
	if report.TopProducts == nil {
		report.TopProducts = []domain.TopSellingProduct{}
	}
	if report.Daily == nil {
		report.Daily = []domain.DailyRevenue{}
	}
	return report, nil
}

// ListAuditLogs returns entries for one store calendar day, or the last 24
// hours when date is empty, newest first.
func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := s.requireRole(ctx, rolesManagement...); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = auditDefaultLimit
	}

	now := s.now()
	from, to := now.Add(-24*time.Hour), now.Add(time.Minute)
	if strings.TrimSpace(date) != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(date), s.loc)
		if err != nil {
			return nil, invalidField("date", "must be a date in YYYY-MM-DD form")
		}
		from, to = s.dayBounds(parsed)
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

// ScanLowStock lists active products at or below their minimum level and
// records one audit entry with the count.
func (s *Service) ScanLowStock(ctx context.Context) ([]domain.Product, error) {
	if _, err := s.requireRole(ctx, rolesInventory...); err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, domain.ProductFilter{LowStockOnly: true})
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		s.logger.WarnContext(ctx, "product low on stock",
			slog.String("code", p.ProductCode),
			slog.String("name", p.Name),
			slog.Int("stock", p.StockQuantity),
			slog.Int("min", p.MinStockLevel))
	}
	s.logAudit(ctx, "low_stock_scan", "product", "", "count="+strconv.Itoa(len(products)))
	return products, nil
}
