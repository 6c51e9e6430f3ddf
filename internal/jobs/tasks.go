package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue every FPTMart task runs on.
	QueueDefault = "default"

	TaskLowStockScan    = "inventory:low_stock_scan"
	TaskDashboardWarmup = "dashboard:warmup"

	LowStockScanCron    = "0 * * * *"
	DashboardWarmupCron = "*/10 * * * *"
)

// LowStockScanPayload is the body of a TaskLowStockScan task. Trigger names
// what enqueued it ("cron" or "manual") and only shows up in logs.
type LowStockScanPayload struct {
	Trigger string `json:"trigger"`
}

// DashboardWarmupPayload is the body of a TaskDashboardWarmup task.
type DashboardWarmupPayload struct {
	Trigger string `json:"trigger"`
}

func NewLowStockScanTask(trigger string) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockScanPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

func NewDashboardWarmupTask(trigger string) (*asynq.Task, error) {
	data, err := json.Marshal(DashboardWarmupPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// DefaultSchedule returns the cron registrations the worker installs.
func DefaultSchedule() ([]CronRegistration, error) {
	scan, err := NewLowStockScanTask("cron")
	if err != nil {
		return nil, err
	}
	warmup, err := NewDashboardWarmupTask("cron")
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: LowStockScanCron, Task: scan, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(QueueDefault)}},
		{Spec: DashboardWarmupCron, Task: warmup, Options: []asynq.Option{asynq.MaxRetry(1), asynq.Queue(QueueDefault)}},
	}, nil
}
