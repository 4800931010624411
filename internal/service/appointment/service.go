// Package appointment implements the scheduling core: slot availability,
// conflict detection, and the appointment lifecycle. Every mutating
// operation runs inside a serializable store transaction so concurrent
// requests cannot both pass the conflict check for the same interval.
package appointment

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

const (
	// DefaultSweepBatchSize bounds how many expired appointments a single
	// sweep pass will touch.
	DefaultSweepBatchSize = 100

	// sequenceMaxRetries bounds the retry loop on appointment-number
	// collisions. The suffix space is 10^4 per day, so more than a couple
	// of retries means something is wrong with the store.
	sequenceMaxRetries = 5
)

// Config carries the scheduling knobs. Zero values fall back to defaults.
type Config struct {
	SlotStep       time.Duration
	DoctorBuffer   time.Duration
	SweepBatchSize int
}

func (c Config) withDefaults() Config {
	if c.SlotStep <= 0 {
		c.SlotStep = DefaultSlotStep
	}
	if c.DoctorBuffer <= 0 {
		c.DoctorBuffer = DefaultDoctorBuffer
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = DefaultSweepBatchSize
	}
	return c
}

type Service struct {
	store   repository.Store
	sync    *syncer.Synchronizer
	auditor *audit.Service
	logger  *logger.Logger
	cfg     Config
}

func NewService(store repository.Store, sync *syncer.Synchronizer, auditor *audit.Service, logger *logger.Logger, cfg Config) *Service {
	return &Service{
		store:   store,
		sync:    sync,
		auditor: auditor,
		logger:  logger,
		cfg:     cfg.withDefaults(),
	}
}

// notFoundOr converts a repository miss into a typed not-found error and
// wraps anything else as internal.
func notFoundOr(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Internal(err)
}

// Get returns a single appointment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.store.Appointments().Get(ctx, id)
	if err != nil {
		return nil, notFoundOr("appointment", err)
	}
	return appt, nil
}

// List returns appointments matching the filters.
func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appts, err := s.store.Appointments().List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return appts, nil
}

// Create books a new appointment. The office-level conflict check and the
// insert run in one serializable transaction; a sequence-number collision
// retries with a fresh suffix.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if req.DurationMinutes <= 0 {
		return nil, apperrors.InvalidInterval("duration must be positive")
	}

	priority := model.AppointmentPriority(req.Priority)
	if priority == "" {
		priority = model.AppointmentPriorityNormal
	}

	appt := &model.Appointment{
		Base:              model.Base{ID: uuid.New()},
		PatientID:         req.PatientID,
		OfficeID:          req.OfficeID,
		PreferredDoctorID: req.PreferredDoctorID,
		StartTime:         req.StartTime,
		DurationMinutes:   req.DurationMinutes,
		Status:            model.AppointmentStatusProgrammed,
		Priority:          priority,
		Notes:             req.Notes,
	}

	err := s.store.Transact(ctx, func(tx repository.Store) error {
		office, err := tx.Offices().Get(ctx, req.OfficeID)
		if err != nil {
			return notFoundOr("office", err)
		}
		if !office.Active {
			return apperrors.InvalidState("office is not active")
		}
		if err := s.checkOfficeConflict(ctx, tx, office.ID, appt.StartTime, appt.Duration(), uuid.Nil); err != nil {
			return err
		}

		for attempt := 0; ; attempt++ {
			appt.AppointmentNumber = NewAppointmentNumber(appt.StartTime)
			err := tx.Appointments().Create(ctx, appt)
			if err == nil {
				break
			}
			if !errors.Is(err, repository.ErrDuplicate) || attempt+1 >= sequenceMaxRetries {
				return apperrors.Internal(fmt.Errorf("create appointment: %w", err))
			}
		}

		return events.Record(ctx, tx.Outbox(), []event.Event{
			event.New(event.TypeAppointmentCreated, map[string]interface{}{
				"id":                 appt.ID.String(),
				"appointment_number": appt.AppointmentNumber,
				"office_id":          appt.OfficeID.String(),
				"patient_id":         appt.PatientID.String(),
				"start_time":         appt.StartTime.Format(time.RFC3339),
				"duration_minutes":   appt.DurationMinutes,
			}),
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionCreate, model.AuditEntityAppointment, appt.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"appointment_number": appt.AppointmentNumber},
	})
	return appt, nil
}

// Edit changes the time, duration, office, or notes of an appointment
// that has not yet entered the waiting room. Conflicts are re-checked
// against the new interval, excluding the appointment itself.
func (s *Service) Edit(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.EditAppointmentRequest) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		var err error
		appt, err = tx.Appointments().Get(ctx, id)
		if err != nil {
			return notFoundOr("appointment", err)
		}
		if appt.Status != model.AppointmentStatusProgrammed && appt.Status != model.AppointmentStatusConfirmed {
			return apperrors.InvalidState(fmt.Sprintf("cannot edit appointment in status %s", appt.Status))
		}

		if req.StartTime != nil {
			appt.StartTime = *req.StartTime
		}
		if req.DurationMinutes != nil {
			if *req.DurationMinutes <= 0 {
				return apperrors.InvalidInterval("duration must be positive")
			}
			appt.DurationMinutes = *req.DurationMinutes
		}
		if req.OfficeID != nil {
			if _, err := tx.Offices().Get(ctx, *req.OfficeID); err != nil {
				return notFoundOr("office", err)
			}
			appt.OfficeID = *req.OfficeID
		}
		if req.Notes != nil {
			appt.Notes = *req.Notes
		}

		if err := s.checkOfficeConflict(ctx, tx, appt.OfficeID, appt.StartTime, appt.Duration(), appt.ID); err != nil {
			return err
		}
		if appt.DoctorID != nil {
			doctor, err := tx.Doctors().Get(ctx, *appt.DoctorID)
			if err != nil {
				return notFoundOr("doctor", err)
			}
			if doctor.OfficeID != appt.OfficeID {
				return apperrors.OwnershipMismatch("assigned doctor does not belong to the appointment's office")
			}
			if err := s.checkDoctorConflict(ctx, tx, *appt.DoctorID, appt.StartTime, appt.Duration(), appt.ID); err != nil {
				return err
			}
		}

		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return apperrors.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionUpdate, model.AuditEntityAppointment, appt.ID, &audit.LogOptions{Changes: req})
	return appt, nil
}

// AssignDoctor assigns a doctor to an unassigned appointment and confirms
// it. The doctor must belong to the appointment's office and must not have
// an overlapping active appointment anywhere.
func (s *Service) AssignDoctor(ctx context.Context, actor model.Actor, id, doctorID uuid.UUID) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		var err error
		appt, err = tx.Appointments().Get(ctx, id)
		if err != nil {
			return notFoundOr("appointment", err)
		}
		if appt.DoctorID != nil {
			return apperrors.InvalidState("appointment already has an assigned doctor")
		}
		switch appt.Status {
		case model.AppointmentStatusProgrammed, model.AppointmentStatusConfirmed, model.AppointmentStatusWaiting:
		default:
			return apperrors.InvalidState(fmt.Sprintf("cannot assign doctor to appointment in status %s", appt.Status))
		}

		doctor, err := tx.Doctors().Get(ctx, doctorID)
		if err != nil {
			return notFoundOr("doctor", err)
		}
		if doctor.OfficeID != appt.OfficeID {
			return apperrors.OwnershipMismatch("doctor does not belong to the appointment's office")
		}
		if err := s.checkDoctorConflict(ctx, tx, doctorID, appt.StartTime, appt.Duration(), appt.ID); err != nil {
			return err
		}

		from := appt.Status
		now := time.Now()
		appt.DoctorID = &doctorID
		appt.DoctorAssignedAt = &now
		appt.Status = model.AppointmentStatusConfirmed
		if appt.ConfirmedAt == nil {
			appt.ConfirmedAt = &now
		}
		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return apperrors.Internal(err)
		}

		evts := []event.Event{
			event.New(event.TypeDoctorAssigned, map[string]interface{}{
				"appointment_id": appt.ID.String(),
				"doctor_id":      doctorID.String(),
			}),
		}
		if from != appt.Status {
			evts = append(evts, event.StatusChanged(event.TypeAppointmentStatusChanged, appt.ID.String(), string(from), string(appt.Status)))
		}
		return events.Record(ctx, tx.Outbox(), evts)
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionAssign, model.AuditEntityAppointment, appt.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"doctor_id": doctorID.String()},
	})
	return appt, nil
}

// Take lets a doctor self-assign an appointment. Same guards as
// AssignDoctor, restricted to the acting doctor.
func (s *Service) Take(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	if !actor.IsDoctor() {
		return nil, apperrors.BadRequest("acting user is not a doctor", nil)
	}
	return s.AssignDoctor(ctx, actor, id, *actor.DoctorID)
}

// Release clears the assigned doctor and drops the appointment back to
// programmed. A bound consultation in waiting/in-progress is released too.
func (s *Service) Release(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	var appt *model.Appointment
	var releasedDoctor uuid.UUID
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		var err error
		appt, err = tx.Appointments().Get(ctx, id)
		if err != nil {
			return notFoundOr("appointment", err)
		}
		if appt.DoctorID == nil {
			return apperrors.InvalidState("appointment has no assigned doctor")
		}
		if appt.Status.IsTerminal() || appt.Status == model.AppointmentStatusRescheduled {
			return apperrors.InvalidState(fmt.Sprintf("cannot release doctor from appointment in status %s", appt.Status))
		}

		releasedDoctor = *appt.DoctorID
		from := appt.Status
		appt.DoctorID = nil
		appt.DoctorAssignedAt = nil
		appt.Status = model.AppointmentStatusProgrammed
		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return apperrors.Internal(err)
		}

		propagated, err := s.sync.DoctorReleased(ctx, tx, appt)
		if err != nil {
			return apperrors.Internal(err)
		}

		evts := []event.Event{
			event.New(event.TypeDoctorReleased, map[string]interface{}{
				"appointment_id": appt.ID.String(),
				"doctor_id":      releasedDoctor.String(),
			}),
		}
		if from != appt.Status {
			evts = append(evts, event.StatusChanged(event.TypeAppointmentStatusChanged, appt.ID.String(), string(from), string(appt.Status)))
		}
		return events.Record(ctx, tx.Outbox(), append(evts, propagated...))
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionRelease, model.AuditEntityAppointment, appt.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"doctor_id": releasedDoctor.String()},
	})
	return appt, nil
}

// Cancel cancels an appointment that has not yet entered attendance. The
// cancellation propagates to a bound consultation unless it already
// finished.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.Appointment, error) {
	if reason == "" {
		return nil, apperrors.BadRequest("cancellation reason is required", nil)
	}

	var appt *model.Appointment
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		var err error
		appt, err = tx.Appointments().Get(ctx, id)
		if err != nil {
			return notFoundOr("appointment", err)
		}
		switch appt.Status {
		case model.AppointmentStatusProgrammed, model.AppointmentStatusConfirmed, model.AppointmentStatusWaiting:
		default:
			return apperrors.InvalidState(fmt.Sprintf("cannot cancel appointment in status %s", appt.Status))
		}

		from := appt.Status
		now := time.Now()
		appt.Status = model.AppointmentStatusCancelled
		appt.CancelledAt = &now
		appt.CancelReason = &reason
		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return apperrors.Internal(err)
		}

		propagated, err := s.sync.AppointmentCancelled(ctx, tx, appt)
		if err != nil {
			return apperrors.Internal(err)
		}

		evts := []event.Event{
			event.StatusChanged(event.TypeAppointmentStatusChanged, appt.ID.String(), string(from), string(appt.Status)),
		}
		return events.Record(ctx, tx.Outbox(), append(evts, propagated...))
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionCancel, model.AuditEntityAppointment, appt.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"reason": reason},
	})
	return appt, nil
}

// Reschedule cancels the time of an existing programmed/confirmed
// appointment by marking it rescheduled, and books a replacement carrying
// a back-reference to the original.
func (s *Service) Reschedule(ctx context.Context, actor model.Actor, id uuid.UUID, newStart time.Time, durationMinutes int) (*model.Appointment, error) {
	if durationMinutes <= 0 {
		return nil, apperrors.InvalidInterval("duration must be positive")
	}

	var replacement *model.Appointment
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		old, err := tx.Appointments().Get(ctx, id)
		if err != nil {
			return notFoundOr("appointment", err)
		}
		if old.Status != model.AppointmentStatusProgrammed && old.Status != model.AppointmentStatusConfirmed {
			return apperrors.InvalidState(fmt.Sprintf("cannot reschedule appointment in status %s", old.Status))
		}

		if err := s.checkOfficeConflict(ctx, tx, old.OfficeID, newStart, time.Duration(durationMinutes)*time.Minute, old.ID); err != nil {
			return err
		}

		from := old.Status
		old.Status = model.AppointmentStatusRescheduled
		if err := tx.Appointments().Update(ctx, old); err != nil {
			return apperrors.Internal(err)
		}

		replacement = &model.Appointment{
			Base:              model.Base{ID: uuid.New()},
			PatientID:         old.PatientID,
			OfficeID:          old.OfficeID,
			PreferredDoctorID: old.PreferredDoctorID,
			StartTime:         newStart,
			DurationMinutes:   durationMinutes,
			Status:            model.AppointmentStatusProgrammed,
			Priority:          old.Priority,
			Notes:             old.Notes,
			RescheduledFromID: &old.ID,
		}
		for attempt := 0; ; attempt++ {
			replacement.AppointmentNumber = NewAppointmentNumber(replacement.StartTime)
			err := tx.Appointments().Create(ctx, replacement)
			if err == nil {
				break
			}
			if !errors.Is(err, repository.ErrDuplicate) || attempt+1 >= sequenceMaxRetries {
				return apperrors.Internal(fmt.Errorf("create replacement appointment: %w", err))
			}
		}

		return events.Record(ctx, tx.Outbox(), []event.Event{
			event.StatusChanged(event.TypeAppointmentStatusChanged, old.ID.String(), string(from), string(old.Status)),
			event.New(event.TypeAppointmentCreated, map[string]interface{}{
				"id":                  replacement.ID.String(),
				"appointment_number":  replacement.AppointmentNumber,
				"office_id":           replacement.OfficeID.String(),
				"patient_id":          replacement.PatientID.String(),
				"start_time":          replacement.StartTime.Format(time.RFC3339),
				"duration_minutes":    replacement.DurationMinutes,
				"rescheduled_from_id": old.ID.String(),
			}),
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actor, model.AuditActionUpdate, model.AuditEntityAppointment, id, &audit.LogOptions{
		Metadata: map[string]interface{}{"rescheduled_to": replacement.ID.String()},
	})
	return replacement, nil
}
