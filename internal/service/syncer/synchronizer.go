// Package syncer keeps an appointment and its bound consultation
// consistent as either one changes. All propagation is idempotent:
// re-applying a transition that already happened is a no-op and never
// re-emits events. Propagation only moves already-valid states forward; if
// a rule would violate an invariant that indicates a defect upstream, so it
// surfaces as an error instead of being skipped.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
	"github.com/medoffice/scheduler-api/pkg/event"
)

type Synchronizer struct{}

func New() *Synchronizer {
	return &Synchronizer{}
}

// ConsultationChanged applies the consultation→appointment rules after the
// consultation reached its current status. It returns the events produced
// by the propagation (not the triggering change itself).
func (s *Synchronizer) ConsultationChanged(ctx context.Context, store repository.Store, cons *model.Consultation) ([]event.Event, error) {
	if cons.AppointmentID == nil {
		return nil, nil
	}

	appt, err := store.Appointments().Get(ctx, *cons.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("synchronizer: bound appointment missing: %w", err)
	}

	var target model.AppointmentStatus
	switch cons.Status {
	case model.ConsultationStatusInProgress:
		target = model.AppointmentStatusInAttendance
	case model.ConsultationStatusFinished:
		target = model.AppointmentStatusCompleted
	case model.ConsultationStatusCancelled:
		target = model.AppointmentStatusCancelled
	case model.ConsultationStatusWaiting:
		target = model.AppointmentStatusWaiting
	default:
		return nil, nil
	}

	if appt.Status == target || appt.Status.IsTerminal() {
		return nil, nil
	}

	from := appt.Status
	appt.Status = target
	now := time.Now()
	switch target {
	case model.AppointmentStatusCancelled:
		appt.CancelledAt = &now
		if appt.CancelReason == nil {
			reason := "consultation cancelled"
			appt.CancelReason = &reason
		}
	}

	if err := store.Appointments().Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("synchronizer: failed to propagate to appointment: %w", err)
	}

	return []event.Event{
		event.StatusChanged(event.TypeAppointmentStatusChanged, appt.ID.String(), string(from), string(target)),
	}, nil
}

// AppointmentCancelled applies the appointment→consultation cancellation
// rule: the bound consultation is cancelled unless it already finished.
func (s *Synchronizer) AppointmentCancelled(ctx context.Context, store repository.Store, appt *model.Appointment) ([]event.Event, error) {
	cons, err := store.Consultations().GetByAppointment(ctx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("synchronizer: failed to load bound consultation: %w", err)
	}
	if cons == nil || cons.Status.IsTerminal() {
		return nil, nil
	}

	from := cons.Status
	cons.Status = model.ConsultationStatusCancelled
	if err := store.Consultations().Update(ctx, cons); err != nil {
		return nil, fmt.Errorf("synchronizer: failed to cancel bound consultation: %w", err)
	}

	return []event.Event{
		event.StatusChanged(event.TypeConsultationStatusChanged, cons.ID.String(), string(from), string(cons.Status)),
	}, nil
}

// DoctorReleased resets the bound consultation when the appointment's
// doctor is released: doctor cleared, status back to waiting.
func (s *Synchronizer) DoctorReleased(ctx context.Context, store repository.Store, appt *model.Appointment) ([]event.Event, error) {
	cons, err := store.Consultations().GetByAppointment(ctx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("synchronizer: failed to load bound consultation: %w", err)
	}
	if cons == nil || !cons.Status.IsActive() {
		return nil, nil
	}

	from := cons.Status
	cons.DoctorID = nil
	cons.Status = model.ConsultationStatusWaiting
	cons.AttendedAt = nil
	if err := store.Consultations().Update(ctx, cons); err != nil {
		return nil, fmt.Errorf("synchronizer: failed to release bound consultation: %w", err)
	}

	evts := []event.Event{}
	if from != cons.Status {
		evts = append(evts, event.StatusChanged(event.TypeConsultationStatusChanged, cons.ID.String(), string(from), string(cons.Status)))
	}
	return evts, nil
}

// SeedDoctor copies the appointment's assigned doctor onto a consultation
// that has none. One-directional, applied on creation only; it is a seed,
// not a standing constraint.
func (s *Synchronizer) SeedDoctor(appt *model.Appointment, cons *model.Consultation) bool {
	if appt == nil || appt.DoctorID == nil || cons.DoctorID != nil {
		return false
	}
	id := *appt.DoctorID
	cons.DoctorID = &id
	return true
}
