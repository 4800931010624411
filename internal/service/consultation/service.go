// Package consultation implements the clinical-encounter lifecycle:
// waiting, in_progress, finished, with a cancelled branch. Transitions
// propagate to a bound appointment through the synchronizer inside the
// same transaction.
package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
	"github.com/medoffice/scheduler-api/internal/service/audit"
	"github.com/medoffice/scheduler-api/internal/service/events"
	"github.com/medoffice/scheduler-api/internal/service/syncer"
	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
	"github.com/medoffice/scheduler-api/pkg/event"
	"github.com/medoffice/scheduler-api/pkg/logger"
)

// WalkInAssumedDuration is the duration assumed for a walk-in encounter
// when checking it against the patient's scheduled appointments. Walk-ins
// carry no explicit duration of their own.
const WalkInAssumedDuration = 30 * time.Minute

type Service struct {
	store   repository.Store
	sync    *syncer.Synchronizer
	auditor *audit.Service
	logger  *logger.Logger
}

func NewService(store repository.Store, sync *syncer.Synchronizer, auditor *audit.Service, logger *logger.Logger) *Service {
	return &Service{store: store, sync: sync, auditor: auditor, logger: logger}
}

func notFoundOr(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Internal(err)
}

// Get returns a single consultation by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	cons, err := s.store.Consultations().Get(ctx, id)
	if err != nil {
		return nil, notFoundOr("consultation", err)
	}
	return cons, nil
}

// Create opens a new encounter. Bound to an appointment it is a scheduled
// consultation and the patient comes from the appointment; without one it
// is a walk-in, guarded against duplicate active walk-ins per patient.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateConsultationRequest) (*model.Consultation, error) {
	if req.AppointmentID != nil {
		return s.createScheduled(ctx, actor, *req.AppointmentID, req.Reason)
	}
	return s.createWalkIn(ctx, actor, req.PatientID, req.Reason)
}

func (s *Service) createScheduled(ctx context.Context, actor model.Actor, appointmentID uuid.UUID, reason string) (*model.Consultation, error) {
	var cons *model.Consultation
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		appt, err := tx.Appointments().Get(ctx, appointmentID)
		if err != nil {
			return notFoundOr("appointment", err)
		}
		if appt.Status.IsTerminal() || appt.Status == model.AppointmentStatusRescheduled {
			return apperrors.InvalidState(fmt.Sprintf("cannot open a consultation for an appointment in status %s", appt.Status))
		}
		existing, err := tx.Consultations().GetByAppointment(ctx, appointmentID)
		if err != nil {
			return apperrors.Internal(err)
		}
		if existing != nil {
			return apperrors.InvalidState("appointment already has a consultation")
		}

		cons = &model.Consultation{
			Base:          model.Base{ID: uuid.New()},
			PatientID:     appt.PatientID,
			AppointmentID: &appointmentID,
			Status:        model.ConsultationStatusWaiting,
			Kind:          model.ConsultationKindScheduled,
			Reason:        reason,
		}
		s.sync.SeedDoctor(appt, cons)

		if err := tx.Consultations().Create(ctx, cons); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.InvalidState("appointment already has a consultation")
			}
			return apperrors.Internal(err)
		}

		// The patient has arrived: the appointment joins the waiting room.
		propagated, err := s.sync.ConsultationChanged(ctx, tx, cons)
		if err != nil {
			return apperrors.Internal(err)
		}
		return events.Record(ctx, tx.Outbox(), propagated)
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionCreate, model.AuditEntityConsultation, cons.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"appointment_id": appointmentID.String()},
	})
	return cons, nil
}

func (s *Service) createWalkIn(ctx context.Context, actor model.Actor, patientID uuid.UUID, reason string) (*model.Consultation, error) {
	var cons *model.Consultation
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		active, err := tx.Consultations().ListActiveWalkInsForPatient(ctx, patientID)
		if err != nil {
			return apperrors.Internal(err)
		}
		if len(active) > 0 {
			return apperrors.InvalidState("patient already has an active walk-in consultation")
		}

		// A walk-in occupies an assumed fixed window from now; it may not
		// collide with the patient's own scheduled appointments.
		appts, err := tx.Appointments().List(ctx, &model.AppointmentFilters{PatientID: patientID})
		if err != nil {
			return apperrors.Internal(err)
		}
		now := time.Now()
		for _, appt := range appts {
			if !appt.Status.IsActive() {
				continue
			}
			if appt.Overlaps(now, WalkInAssumedDuration) {
				return apperrors.ScheduleConflict(fmt.Sprintf(
					"patient has appointment %s at %s", appt.AppointmentNumber, appt.StartTime.Format("15:04")))
			}
		}

		cons = &model.Consultation{
			Base:      model.Base{ID: uuid.New()},
			PatientID: patientID,
			Status:    model.ConsultationStatusWaiting,
			Kind:      model.ConsultationKindWalkIn,
			Reason:    reason,
		}
		if err := tx.Consultations().Create(ctx, cons); err != nil {
			return apperrors.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionCreate, model.AuditEntityConsultation, cons.ID, nil)
	return cons, nil
}

// Start moves a waiting consultation into progress. The doctor comes from
// the consultation's seed or from the acting doctor; a doctor can attend
// at most one in-progress consultation at a time.
func (s *Service) Start(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Consultation, error) {
	var cons *model.Consultation
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		var err error
		cons, err = tx.Consultations().Get(ctx, id)
		if err != nil {
			return notFoundOr("consultation", err)
		}
		if cons.Status != model.ConsultationStatusWaiting {
			return apperrors.InvalidState(fmt.Sprintf("cannot start consultation in status %s", cons.Status))
		}

		doctorID := cons.DoctorID
		if doctorID == nil && actor.IsDoctor() {
			doctorID = actor.DoctorID
		}
		if doctorID == nil {
			return apperrors.BadRequest("consultation has no doctor to attend it", nil)
		}

		inProgress, err := tx.Consultations().CountInProgressForDoctor(ctx, *doctorID)
		if err != nil {
			return apperrors.Internal(err)
		}
		if inProgress > 0 {
			return apperrors.DoctorBusy("doctor already has a consultation in progress")
		}

		now := time.Now()
		cons.DoctorID = doctorID
		cons.Status = model.ConsultationStatusInProgress
		cons.AttendedAt = &now
		if err := tx.Consultations().Update(ctx, cons); err != nil {
			return apperrors.Internal(err)
		}

		propagated, err := s.sync.ConsultationChanged(ctx, tx, cons)
		if err != nil {
			return apperrors.Internal(err)
		}
		evts := []event.Event{
			event.StatusChanged(event.TypeConsultationStatusChanged, cons.ID.String(),
				string(model.ConsultationStatusWaiting), string(cons.Status)),
		}
		return events.Record(ctx, tx.Outbox(), append(evts, propagated...))
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionUpdate, model.AuditEntityConsultation, cons.ID, nil)
	return cons, nil
}

// Finish closes an in-progress consultation and records the clinical
// outcome. Finishing an already-finished consultation is a no-op.
func (s *Service) Finish(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.FinishConsultationRequest) (*model.Consultation, error) {
	var cons *model.Consultation
	var changed bool
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		var err error
		cons, err = tx.Consultations().Get(ctx, id)
		if err != nil {
			return notFoundOr("consultation", err)
		}
		if cons.Status == model.ConsultationStatusFinished {
			return nil
		}
		if cons.Status != model.ConsultationStatusInProgress {
			return apperrors.InvalidState(fmt.Sprintf("cannot finish consultation in status %s", cons.Status))
		}

		now := time.Now()
		cons.Status = model.ConsultationStatusFinished
		cons.FinishedAt = &now
		if req != nil {
			cons.Diagnosis = req.Diagnosis
			cons.Treatment = req.Treatment
			cons.Notes = req.Notes
		}
		if err := tx.Consultations().Update(ctx, cons); err != nil {
			return apperrors.Internal(err)
		}
		changed = true

		propagated, err := s.sync.ConsultationChanged(ctx, tx, cons)
		if err != nil {
			return apperrors.Internal(err)
		}
		evts := []event.Event{
			event.StatusChanged(event.TypeConsultationStatusChanged, cons.ID.String(),
				string(model.ConsultationStatusInProgress), string(cons.Status)),
		}
		return events.Record(ctx, tx.Outbox(), append(evts, propagated...))
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.auditor.Record(ctx, actor, model.AuditActionUpdate, model.AuditEntityConsultation, cons.ID, nil)
	}
	return cons, nil
}

// Cancel cancels a waiting or in-progress consultation and propagates the
// cancellation to a bound appointment unless it already reached a terminal
// status. Cancelling an already-cancelled consultation is a no-op.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Consultation, error) {
	var cons *model.Consultation
	var changed bool
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		var err error
		cons, err = tx.Consultations().Get(ctx, id)
		if err != nil {
			return notFoundOr("consultation", err)
		}
		if cons.Status == model.ConsultationStatusCancelled {
			return nil
		}
		if !cons.Status.IsActive() {
			return apperrors.InvalidState(fmt.Sprintf("cannot cancel consultation in status %s", cons.Status))
		}

		from := cons.Status
		cons.Status = model.ConsultationStatusCancelled
		if err := tx.Consultations().Update(ctx, cons); err != nil {
			return apperrors.Internal(err)
		}
		changed = true

		propagated, err := s.sync.ConsultationChanged(ctx, tx, cons)
		if err != nil {
			return apperrors.Internal(err)
		}
		evts := []event.Event{
			event.StatusChanged(event.TypeConsultationStatusChanged, cons.ID.String(), string(from), string(cons.Status)),
		}
		return events.Record(ctx, tx.Outbox(), append(evts, propagated...))
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.auditor.Record(ctx, actor, model.AuditActionCancel, model.AuditEntityConsultation, cons.ID, nil)
	}
	return cons, nil
}
