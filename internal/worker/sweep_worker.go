package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/observability"
	"github.com/spec-kit/escalation-service/internal/service"
)

// SweepWorker runs the timeout sweep on a fixed cadence. The sweep is
// idempotent, so an invocation overlapping a slow predecessor is safe.
type SweepWorker struct {
	escalation *service.EscalationService
	interval   time.Duration
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewSweepWorker constructs the worker.
func NewSweepWorker(escalation *service.EscalationService, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *SweepWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SweepWorker{
		escalation: escalation,
		interval:   interval,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled, sweeping every interval. Sweep
// errors are logged and the loop continues.
func (w *SweepWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sweep worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sweep worker stopped")
			return
		case <-ticker.C:
			swept, err := w.escalation.Sweep(ctx)
			if err != nil {
				w.logger.Error("timeout sweep failed", zap.Error(err))
				continue
			}
			w.metrics.RecordSweep(swept)
		}
	}
}
