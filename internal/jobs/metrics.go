package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts task runs and their latency per task type.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the task collectors against registerer, or the
// default Prometheus registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fptmart_tasks_total",
		Help: "Background task executions by task type and status.",
	}, []string{"task", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fptmart_task_duration_seconds",
		Help:    "Background task duration by task type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
	registerer.MustRegister(runs, duration)
	return &Metrics{runs: runs, duration: duration}
}

// Middleware observes every task the mux dispatches. Tasks rejected with
// SkipRetry are counted as skipped rather than failed.
func (m *Metrics) Middleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		startedAt := time.Now()
		err := next.ProcessTask(ctx, task)

		m.runs.WithLabelValues(task.Type(), taskStatus(err)).Inc()
		m.duration.WithLabelValues(task.Type()).Observe(time.Since(startedAt).Seconds())
		return err
	})
}

func taskStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, asynq.SkipRetry):
		return "skipped"
	default:
		return "failure"
	}
}
