package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
)

// DefaultSlotStep is the discretization step for candidate start-times.
const DefaultSlotStep = 15 * time.Minute

// RoundUpDuration rounds a requested duration up to the nearest step, with
// a minimum of one step.
func RoundUpDuration(duration, step time.Duration) time.Duration {
	if duration <= step {
		return step
	}
	if rem := duration % step; rem != 0 {
		return duration + step - rem
	}
	return duration
}

// GenerateSlots produces every candidate start-time of the office day for
// the requested duration, each tagged free or occupied. Candidates run at
// a fixed step from opening while start+duration still fits before closing.
// A candidate is occupied when booking it would overlap an active
// appointment; excludeID removes one appointment from the occupancy set
// (used when editing). Pure function of its inputs.
func GenerateSlots(office *model.Office, duration, step time.Duration, active []*model.Appointment, excludeID uuid.UUID) ([]model.Slot, error) {
	if duration <= 0 {
		return nil, apperrors.InvalidInterval("requested duration must be positive")
	}
	if err := office.Validate(); err != nil {
		return nil, err
	}
	if step <= 0 {
		step = DefaultSlotStep
	}

	rounded := RoundUpDuration(duration, step)
	stepMin := int(step / time.Minute)
	durMin := int(rounded / time.Minute)

	open := office.OpenMinutes()
	close := office.CloseMinutes()

	var slots []model.Slot
	for m := open; m+durMin <= close; m += stepMin {
		state := model.SlotStateFree
		for _, appt := range active {
			if appt.ID == excludeID || !appt.Status.IsActive() {
				continue
			}
			apptStart := appt.StartTime.Hour()*60 + appt.StartTime.Minute()
			apptEnd := apptStart + appt.DurationMinutes
			// Half-open overlap of the candidate booking [m, m+dur)
			// against the appointment [start, end). A booking whose tail
			// reaches into the appointment is blocked; one starting at the
			// appointment's end is not.
			if m < apptEnd && apptStart < m+durMin {
				state = model.SlotStateOccupied
				break
			}
		}
		slots = append(slots, model.Slot{
			Value: model.MinutesToClock(m),
			Label: model.MinutesToLabel(m),
			State: state,
		})
	}
	return slots, nil
}

// FreeSlots lists the office's candidate start-times for the given day and
// duration. The listing is advisory; the authoritative conflict check runs
// again inside the booking transaction.
func (s *Service) FreeSlots(ctx context.Context, officeID uuid.UUID, day time.Time, durationMinutes int, excludeID uuid.UUID) ([]model.Slot, error) {
	office, err := s.store.Offices().Get(ctx, officeID)
	if err != nil {
		return nil, notFoundOr("office", err)
	}

	active, err := s.store.Appointments().ListActiveForOfficeDay(ctx, officeID, day)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return GenerateSlots(office, time.Duration(durationMinutes)*time.Minute, s.cfg.SlotStep, active, excludeID)
}
