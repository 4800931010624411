package worker

import (
	"context"
	"time"

	"github.com/medoffice/scheduler-api/internal/repository"
	"github.com/medoffice/scheduler-api/pkg/logger"
)

// RetentionWorker trims processed outbox events and old audit log entries.
type RetentionWorker struct {
	outbox    repository.OutboxRepository
	audit     repository.AuditRepository
	outboxAge time.Duration
	auditAge  time.Duration
	interval  time.Duration
	logger    *logger.Logger
}

func NewRetentionWorker(outbox repository.OutboxRepository, audit repository.AuditRepository, outboxAge, auditAge, interval time.Duration, logger *logger.Logger) *RetentionWorker {
	if outboxAge <= 0 {
		outboxAge = 7 * 24 * time.Hour
	}
	if auditAge <= 0 {
		auditAge = 90 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionWorker{
		outbox:    outbox,
		audit:     audit,
		outboxAge: outboxAge,
		auditAge:  auditAge,
		interval:  interval,
		logger:    logger,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *RetentionWorker) cleanup(ctx context.Context) {
	now := time.Now()

	deleted, err := w.outbox.DeleteProcessedBefore(ctx, now.Add(-w.outboxAge))
	if err != nil {
		w.logger.Error(err, "failed to trim processed outbox events")
	} else if deleted > 0 {
		w.logger.Info("trimmed processed outbox events", "deleted", deleted)
	}

	deleted, err = w.audit.DeleteBefore(ctx, now.Add(-w.auditAge))
	if err != nil {
		w.logger.Error(err, "failed to trim audit logs")
	} else if deleted > 0 {
		w.logger.Info("trimmed audit logs", "deleted", deleted)
	}
}
