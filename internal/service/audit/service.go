package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
	"github.com/medoffice/scheduler-api/pkg/logger"
)

// Service records audit trail entries for core state changes. Auditing is
// best-effort: a failed write is logged and never fails the transition that
// produced it.
type Service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

type LogOptions struct {
	Changes  interface{}
	Metadata interface{}
}

// Record creates an audit log entry attributed to the acting user.
func (s *Service) Record(ctx context.Context, actor model.Actor, action, entityType string, entityID uuid.UUID, opts *LogOptions) {
	var changes, metadata json.RawMessage
	var err error

	if opts != nil {
		if opts.Changes != nil {
			if changes, err = json.Marshal(opts.Changes); err != nil {
				s.logger.Error(err, "failed to marshal audit changes")
				return
			}
		}
		if opts.Metadata != nil {
			if metadata, err = json.Marshal(opts.Metadata); err != nil {
				s.logger.Error(err, "failed to marshal audit metadata")
				return
			}
		}
	}

	entry := &model.AuditLog{
		ID:         uuid.New(),
		ActorID:    actor.UserID,
		OfficeID:   actor.OfficeID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(err, "failed to write audit log",
			"action", action, "entity_type", entityType, "entity_id", entityID.String())
	}
}

func (s *Service) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, filters)
}

// Cleanup removes entries older than the retention cutoff.
func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, before)
}
