package worker

import (
	"context"
	"time"

	"github.com/medoffice/scheduler-api/internal/service/appointment"
	"github.com/medoffice/scheduler-api/pkg/logger"
	"github.com/medoffice/scheduler-api/pkg/metrics"
)

// SweeperWorker periodically demotes past, unattended appointments to
// no-show. The sweep itself is idempotent and isolates per-item failures,
// so overlapping runs are harmless.
type SweeperWorker struct {
	svc      *appointment.Service
	interval time.Duration
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewSweeperWorker(svc *appointment.Service, interval time.Duration, logger *logger.Logger, metrics *metrics.Metrics) *SweeperWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweeperWorker{svc: svc, interval: interval, logger: logger, metrics: metrics}
}

func (w *SweeperWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting expiration sweeper", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down expiration sweeper")
			return
		case <-ticker.C:
			result, err := w.svc.SweepExpired(ctx, time.Now())
			if err != nil {
				w.logger.Error(err, "expiration sweep failed")
				continue
			}
			if result.Expired > 0 || result.Failed > 0 {
				w.metrics.AppointmentsExpired.Add(float64(result.Expired))
				w.logger.Info("expiration sweep finished",
					"expired", result.Expired, "failed", result.Failed)
			}
		}
	}
}
