package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
	"github.com/medoffice/scheduler-api/internal/service/audit"
	"github.com/medoffice/scheduler-api/internal/service/events"
	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
	"github.com/medoffice/scheduler-api/pkg/event"
)

// NoShowReason is recorded as the cancellation reason when the sweeper
// expires an unattended appointment.
const NoShowReason = "no-show"

// SweepResult summarizes one pass of the expiration sweeper.
type SweepResult struct {
	Expired int
	Failed  int
}

// SweepExpired demotes past programmed/confirmed appointments with no
// bound consultation to no_show. Each candidate is re-checked and updated
// in its own transaction so one failure never stops the rest of the sweep,
// and a concurrent transition on a candidate turns that item into a no-op.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	candidates, err := s.store.Appointments().ListExpirable(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		return SweepResult{}, apperrors.Internal(err)
	}

	var result SweepResult
	actor := model.SystemActor()
	for _, candidate := range candidates {
		expired, err := s.expireOne(ctx, candidate.ID, now)
		if err != nil {
			result.Failed++
			s.logger.Error(err, "failed to expire appointment", "appointment_id", candidate.ID.String())
			s.auditor.Record(ctx, actor, model.AuditActionExpire, model.AuditEntityAppointment, candidate.ID, &audit.LogOptions{
				Metadata: map[string]interface{}{"error": err.Error()},
			})
			continue
		}
		if expired {
			result.Expired++
			s.auditor.Record(ctx, actor, model.AuditActionExpire, model.AuditEntityAppointment, candidate.ID, nil)
		}
	}
	return result, nil
}

func (s *Service) expireOne(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	expired := false
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		appt, err := tx.Appointments().Get(ctx, id)
		if err != nil {
			return err
		}
		// Re-check under the transaction: the appointment may have moved
		// on, or acquired a consultation, since the candidate list was read.
		if appt.Status != model.AppointmentStatusProgrammed && appt.Status != model.AppointmentStatusConfirmed {
			return nil
		}
		if !appt.StartTime.Before(now) {
			return nil
		}
		cons, err := tx.Consultations().GetByAppointment(ctx, appt.ID)
		if err != nil {
			return err
		}
		if cons != nil {
			return nil
		}

		from := appt.Status
		reason := NoShowReason
		appt.Status = model.AppointmentStatusNoShow
		appt.CancelledAt = &now
		appt.CancelReason = &reason
		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return err
		}
		expired = true

		return events.Record(ctx, tx.Outbox(), []event.Event{
			event.StatusChanged(event.TypeAppointmentStatusChanged, appt.ID.String(), string(from), string(appt.Status)),
		})
	})
	return expired, err
}
