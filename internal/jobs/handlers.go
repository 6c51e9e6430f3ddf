package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/service"
)

// systemActor is the identity scheduled tasks run under.
var systemActor = domain.Actor{
	UserID:   "system",
	Username: "system",
	Roles:    []string{domain.RoleAdmin},
}

// Handlers runs scheduled tasks against the service layer.
type Handlers struct {
	svc     *service.Service
	logger  *slog.Logger
	timeout time.Duration
}

func NewHandlers(svc *service.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger, timeout: time.Minute}
}

// TaskHandlers lists the asynq handlers served by the worker.
func (h *Handlers) TaskHandlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskLowStockScan, Handler: h.HandleLowStockScan},
		{Type: TaskDashboardWarmup, Handler: h.HandleDashboardWarmup},
	}
}

func (h *Handlers) HandleLowStockScan(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", TaskLowStockScan, asynq.SkipRetry)
	}
	ctx, cancel := h.systemContext(ctx)
	defer cancel()

	logger := h.logger.With(slog.String("job", TaskLowStockScan), slog.String("trigger", payload.Trigger))
	startedAt := time.Now()
	products, err := h.svc.ScanLowStock(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "low stock scan failed", slog.Any("error", err))
		return err
	}
	logger.InfoContext(ctx, "low stock scan completed",
		slog.Int("low_stock", len(products)),
		slog.Duration("duration", time.Since(startedAt)))
	return nil
}

func (h *Handlers) HandleDashboardWarmup(ctx context.Context, t *asynq.Task) error {
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", TaskDashboardWarmup, asynq.SkipRetry)
	}
	ctx, cancel := h.systemContext(ctx)
	defer cancel()

	logger := h.logger.With(slog.String("job", TaskDashboardWarmup), slog.String("trigger", payload.Trigger))
	summary, err := h.svc.WarmDashboard(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.WarnContext(ctx, "dashboard warmup timed out")
		}
		return err
	}
	logger.InfoContext(ctx, "dashboard warmed",
		slog.Int64("today_revenue", summary.TodayRevenue),
		slog.Int("today_sales", summary.TodaySalesCount))
	return nil
}

func (h *Handlers) systemContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(service.WithActor(ctx, systemActor), h.timeout)
}
