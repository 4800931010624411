package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
)

// DefaultDoctorBuffer pads a doctor's appointments when checking
// cross-office assignment conflicts.
const DefaultDoctorBuffer = 15 * time.Minute

// Conflict describes a collision with an existing active appointment.
type Conflict struct {
	Appointment *model.Appointment
}

func (c *Conflict) Description() string {
	a := c.Appointment
	return fmt.Sprintf("conflicts with appointment %s for patient %s (%s - %s)",
		a.AppointmentNumber,
		a.PatientID,
		a.StartTime.Format("15:04"),
		a.EndTime().Format("15:04"),
	)
}

// FindConflict applies the half-open interval test against every active
// appointment: [s1, s1+d1) and [s2, s2+d2) conflict iff s1 < s2+d2 and
// s2 < s1+d1. excludeID skips the appointment being edited. Independent of
// slot generation on purpose: a client may submit a time that was never on
// the generated list.
func FindConflict(start time.Time, duration time.Duration, existing []*model.Appointment, excludeID uuid.UUID) *Conflict {
	for _, appt := range existing {
		if appt.ID == excludeID || !appt.Status.IsActive() {
			continue
		}
		if appt.Overlaps(start, duration) {
			return &Conflict{Appointment: appt}
		}
	}
	return nil
}

// FindDoctorConflict checks a doctor-level interval conflict across
// offices, padding the candidate interval with the configured buffer on
// both sides.
func FindDoctorConflict(start time.Time, duration, buffer time.Duration, existing []*model.Appointment, excludeID uuid.UUID) *Conflict {
	padded := start.Add(-buffer)
	paddedDuration := duration + 2*buffer
	return FindConflict(padded, paddedDuration, existing, excludeID)
}

// checkOfficeConflict runs the authoritative office-day conflict check
// inside the caller's transaction.
func (s *Service) checkOfficeConflict(ctx context.Context, store repository.Store, officeID uuid.UUID, start time.Time, duration time.Duration, excludeID uuid.UUID) error {
	active, err := store.Appointments().ListActiveForOfficeDay(ctx, officeID, start)
	if err != nil {
		return err
	}
	if c := FindConflict(start, duration, active, excludeID); c != nil {
		return apperrors.ScheduleConflict(c.Description())
	}
	return nil
}

// checkDoctorConflict validates that the doctor has no overlapping active
// appointment anywhere, with the configured buffer before and after.
func (s *Service) checkDoctorConflict(ctx context.Context, store repository.Store, doctorID uuid.UUID, start time.Time, duration time.Duration, excludeID uuid.UUID) error {
	active, err := store.Appointments().ListActiveForDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	if c := FindDoctorConflict(start, duration, s.cfg.DoctorBuffer, active, excludeID); c != nil {
		return apperrors.ScheduleConflict(fmt.Sprintf("doctor %s", c.Description()))
	}
	return nil
}
