package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medoffice/scheduler-api/internal/model"
	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
)

func testOffice(opens, closes string) *model.Office {
	return &model.Office{
		Base:     model.Base{ID: uuid.New()},
		Name:     "Consulting Room 1",
		OpensAt:  opens,
		ClosesAt: closes,
		Active:   true,
	}
}

func activeAppointment(officeID uuid.UUID, start time.Time, minutes int) *model.Appointment {
	return &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		PatientID:       uuid.New(),
		OfficeID:        officeID,
		StartTime:       start,
		DurationMinutes: minutes,
		Status:          model.AppointmentStatusConfirmed,
	}
}

func TestRoundUpDuration(t *testing.T) {
	step := 15 * time.Minute

	assert.Equal(t, 15*time.Minute, RoundUpDuration(time.Minute, step))
	assert.Equal(t, 15*time.Minute, RoundUpDuration(15*time.Minute, step))
	assert.Equal(t, 30*time.Minute, RoundUpDuration(20*time.Minute, step))
	assert.Equal(t, 30*time.Minute, RoundUpDuration(30*time.Minute, step))
	assert.Equal(t, 45*time.Minute, RoundUpDuration(31*time.Minute, step))
}

func TestGenerateSlotsEmptyDay(t *testing.T) {
	office := testOffice("09:00", "12:00")

	slots, err := GenerateSlots(office, 30*time.Minute, DefaultSlotStep, nil, uuid.Nil)
	require.NoError(t, err)

	// Every 15 minutes from opening while a 30-minute block still fits
	// before closing: 09:00 through 11:30.
	require.Len(t, slots, 11)
	assert.Equal(t, "09:00", slots[0].Value)
	assert.Equal(t, "09:00 AM", slots[0].Label)
	assert.Equal(t, "11:30", slots[10].Value)
	for _, slot := range slots {
		assert.Equal(t, model.SlotStateFree, slot.State)
	}
}

func TestGenerateSlotsOccupancy(t *testing.T) {
	office := testOffice("09:00", "12:00")
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	appt := activeAppointment(office.ID, day.Add(10*time.Hour), 30)

	slots, err := GenerateSlots(office, 30*time.Minute, DefaultSlotStep, []*model.Appointment{appt}, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, slots, 11)

	occupied := map[string]bool{}
	for _, slot := range slots {
		if slot.State == model.SlotStateOccupied {
			occupied[slot.Value] = true
		}
	}
	// A 30-minute booking at 09:45, 10:00, or 10:15 would run into the
	// 10:00-10:30 appointment; everything else stays free, including the
	// back-to-back 10:30 start.
	assert.Equal(t, map[string]bool{"09:45": true, "10:00": true, "10:15": true}, occupied)
}

func TestGenerateSlotsCoversAppointmentInterior(t *testing.T) {
	office := testOffice("08:00", "18:00")
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	appt := activeAppointment(office.ID, day.Add(11*time.Hour), 45)

	slots, err := GenerateSlots(office, 15*time.Minute, DefaultSlotStep, []*model.Appointment{appt}, uuid.Nil)
	require.NoError(t, err)

	// Every slot that falls inside [start, start+duration) must be occupied.
	for _, slot := range slots {
		m, err := model.ClockMinutes(slot.Value)
		require.NoError(t, err)
		if m >= 11*60 && m < 11*60+45 {
			assert.Equal(t, model.SlotStateOccupied, slot.State, "slot %s", slot.Value)
		}
	}
}

func TestGenerateSlotsDeterministic(t *testing.T) {
	office := testOffice("09:00", "13:00")
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	active := []*model.Appointment{
		activeAppointment(office.ID, day.Add(9*time.Hour+30*time.Minute), 30),
		activeAppointment(office.ID, day.Add(11*time.Hour), 60),
	}

	first, err := GenerateSlots(office, 20*time.Minute, DefaultSlotStep, active, uuid.Nil)
	require.NoError(t, err)
	second, err := GenerateSlots(office, 20*time.Minute, DefaultSlotStep, active, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateSlotsExcludesAppointment(t *testing.T) {
	office := testOffice("09:00", "12:00")
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	appt := activeAppointment(office.ID, day.Add(10*time.Hour), 30)

	slots, err := GenerateSlots(office, 30*time.Minute, DefaultSlotStep, []*model.Appointment{appt}, appt.ID)
	require.NoError(t, err)
	for _, slot := range slots {
		assert.Equal(t, model.SlotStateFree, slot.State, "slot %s", slot.Value)
	}
}

func TestGenerateSlotsIgnoresInactiveStatuses(t *testing.T) {
	office := testOffice("09:00", "12:00")
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	appt := activeAppointment(office.ID, day.Add(10*time.Hour), 30)
	appt.Status = model.AppointmentStatusCancelled

	slots, err := GenerateSlots(office, 30*time.Minute, DefaultSlotStep, []*model.Appointment{appt}, uuid.Nil)
	require.NoError(t, err)
	for _, slot := range slots {
		assert.Equal(t, model.SlotStateFree, slot.State)
	}
}

func TestGenerateSlotsRejectsBadInput(t *testing.T) {
	_, err := GenerateSlots(testOffice("09:00", "12:00"), 0, DefaultSlotStep, nil, uuid.Nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidInterval))

	_, err = GenerateSlots(testOffice("12:00", "09:00"), 30*time.Minute, DefaultSlotStep, nil, uuid.Nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidInterval))
}
