package appointment

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository/memory"
	"github.com/medoffice/scheduler-api/internal/service/audit"
	"github.com/medoffice/scheduler-api/internal/service/syncer"
	apperrors "github.com/medoffice/scheduler-api/pkg/errors"
	"github.com/medoffice/scheduler-api/pkg/event"
	"github.com/medoffice/scheduler-api/pkg/logger"
)

var staffActor = model.Actor{UserID: uuid.New(), Role: model.ActorRoleStaff}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	log := logger.NewLogger(nil)
	return NewService(store, syncer.New(), audit.NewService(store.Audit(), log), log, Config{}), store
}

func seedOffice(t *testing.T, store *memory.Store) *model.Office {
	t.Helper()
	office := testOffice("09:00", "18:00")
	require.NoError(t, store.Offices().Create(context.Background(), office))
	return office
}

func seedDoctor(t *testing.T, store *memory.Store, officeID uuid.UUID) *model.Doctor {
	t.Helper()
	doctor := &model.Doctor{
		Base:      model.Base{ID: uuid.New()},
		FirstName: "Ana",
		LastName:  "Reyes",
		OfficeID:  officeID,
		Active:    true,
	}
	require.NoError(t, store.Doctors().Create(context.Background(), doctor))
	return doctor
}

func seedAppointment(t *testing.T, svc *Service, officeID uuid.UUID, start time.Time, minutes int) *model.Appointment {
	t.Helper()
	appt, err := svc.Create(context.Background(), staffActor, &model.CreateAppointmentRequest{
		PatientID:       uuid.New(),
		OfficeID:        officeID,
		StartTime:       start,
		DurationMinutes: minutes,
	})
	require.NoError(t, err)
	return appt
}

func outboxTypes(store *memory.Store) []string {
	var types []string
	for _, e := range store.OutboxEvents {
		types = append(types, e.EventType)
	}
	return types
}

func TestCreateAppointment(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	appt, err := svc.Create(context.Background(), staffActor, &model.CreateAppointmentRequest{
		PatientID:       uuid.New(),
		OfficeID:        office.ID,
		StartTime:       start,
		DurationMinutes: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusProgrammed, appt.Status)
	assert.Equal(t, model.AppointmentPriorityNormal, appt.Priority)
	assert.Nil(t, appt.DoctorID)
	assert.Regexp(t, regexp.MustCompile(`^CIT-20260115-\d{4}$`), appt.AppointmentNumber)

	assert.Equal(t, []string{event.TypeAppointmentCreated}, outboxTypes(store))
	require.Len(t, store.AuditLogs, 1)
	assert.Equal(t, model.AuditActionCreate, store.AuditLogs[0].Action)
}

func TestCreateAppointmentConflict(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	seedAppointment(t, svc, office.ID, day.Add(10*time.Hour), 30)

	// 10:15 for 30 minutes runs into the 10:00-10:30 booking.
	_, err := svc.Create(context.Background(), staffActor, &model.CreateAppointmentRequest{
		PatientID:       uuid.New(),
		OfficeID:        office.ID,
		StartTime:       day.Add(10*time.Hour + 15*time.Minute),
		DurationMinutes: 30,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrScheduleConflict))

	// The adjacent 10:30 start does not.
	_, err = svc.Create(context.Background(), staffActor, &model.CreateAppointmentRequest{
		PatientID:       uuid.New(),
		OfficeID:        office.ID,
		StartTime:       day.Add(10*time.Hour + 30*time.Minute),
		DurationMinutes: 30,
	})
	assert.NoError(t, err)
}

func TestCreateAppointmentGuards(t *testing.T) {
	svc, store := newTestService(t)
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	_, err := svc.Create(context.Background(), staffActor, &model.CreateAppointmentRequest{
		PatientID:       uuid.New(),
		OfficeID:        uuid.New(),
		StartTime:       start,
		DurationMinutes: 30,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	closed := testOffice("09:00", "18:00")
	closed.Active = false
	require.NoError(t, store.Offices().Create(context.Background(), closed))
	_, err = svc.Create(context.Background(), staffActor, &model.CreateAppointmentRequest{
		PatientID:       uuid.New(),
		OfficeID:        closed.ID,
		StartTime:       start,
		DurationMinutes: 30,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	_, err = svc.Create(context.Background(), staffActor, &model.CreateAppointmentRequest{
		PatientID:       uuid.New(),
		OfficeID:        closed.ID,
		StartTime:       start,
		DurationMinutes: 0,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidInterval))
}

func TestAssignDoctor(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	doctor := seedDoctor(t, store, office.ID)
	appt := seedAppointment(t, svc, office.ID, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), 30)

	got, err := svc.AssignDoctor(context.Background(), staffActor, appt.ID, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, got.Status)
	require.NotNil(t, got.DoctorID)
	assert.Equal(t, doctor.ID, *got.DoctorID)
	assert.NotNil(t, got.DoctorAssignedAt)
	assert.NotNil(t, got.ConfirmedAt)

	// A doctor is already assigned.
	_, err = svc.AssignDoctor(context.Background(), staffActor, appt.ID, doctor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestAssignDoctorOwnership(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	other := seedOffice(t, store)
	outsider := seedDoctor(t, store, other.ID)
	appt := seedAppointment(t, svc, office.ID, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), 30)

	_, err := svc.AssignDoctor(context.Background(), staffActor, appt.ID, outsider.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrOwnershipMismatch))
}

func TestAssignDoctorBufferConflict(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	doctor := seedDoctor(t, store, office.ID)
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	busy := seedAppointment(t, svc, office.ID, day.Add(10*time.Hour), 30)
	_, err := svc.AssignDoctor(context.Background(), staffActor, busy.ID, doctor.ID)
	require.NoError(t, err)

	// 10:30 in the same office is free calendar-wise, but falls inside
	// the doctor's 15-minute buffer after 10:00-10:30.
	adjacent := seedAppointment(t, svc, office.ID, day.Add(10*time.Hour+30*time.Minute), 30)
	_, err = svc.AssignDoctor(context.Background(), staffActor, adjacent.ID, doctor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrScheduleConflict))
}

func TestTakeAppointment(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	doctor := seedDoctor(t, store, office.ID)
	appt := seedAppointment(t, svc, office.ID, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), 30)

	_, err := svc.Take(context.Background(), staffActor, appt.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	doctorActor := model.Actor{UserID: uuid.New(), Role: model.ActorRoleDoctor, OfficeID: office.ID, DoctorID: &doctor.ID}
	got, err := svc.Take(context.Background(), doctorActor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, got.Status)
	assert.Equal(t, doctor.ID, *got.DoctorID)
}

func TestReleaseDoctor(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	doctor := seedDoctor(t, store, office.ID)
	appt := seedAppointment(t, svc, office.ID, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), 30)

	// No doctor assigned yet.
	_, err := svc.Release(context.Background(), staffActor, appt.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	_, err = svc.AssignDoctor(context.Background(), staffActor, appt.ID, doctor.ID)
	require.NoError(t, err)

	got, err := svc.Release(context.Background(), staffActor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusProgrammed, got.Status)
	assert.Nil(t, got.DoctorID)
	assert.Nil(t, got.DoctorAssignedAt)
	assert.Contains(t, outboxTypes(store), event.TypeDoctorReleased)
}

func TestReleaseTerminalAppointment(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	doctor := seedDoctor(t, store, office.ID)
	appt := seedAppointment(t, svc, office.ID, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), 30)

	_, err := svc.AssignDoctor(context.Background(), staffActor, appt.ID, doctor.ID)
	require.NoError(t, err)

	// Swept to no-show with the doctor still attached.
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	reason := NoShowReason
	stored, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	stored.Status = model.AppointmentStatusNoShow
	stored.CancelledAt = &now
	stored.CancelReason = &reason
	require.NoError(t, store.Appointments().Update(context.Background(), stored))

	_, err = svc.Release(context.Background(), staffActor, appt.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	// The record stays terminal, cancellation fields intact.
	got, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusNoShow, got.Status)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, NoShowReason, *got.CancelReason)
	assert.NotNil(t, got.CancelledAt)

	// A superseded appointment is equally off limits.
	stored.Status = model.AppointmentStatusRescheduled
	stored.CancelledAt = nil
	stored.CancelReason = nil
	require.NoError(t, store.Appointments().Update(context.Background(), stored))

	_, err = svc.Release(context.Background(), staffActor, appt.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestCancelAppointment(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	appt := seedAppointment(t, svc, office.ID, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), 30)

	_, err := svc.Cancel(context.Background(), staffActor, appt.ID, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	got, err := svc.Cancel(context.Background(), staffActor, appt.ID, "patient request")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, "patient request", *got.CancelReason)
	assert.NotNil(t, got.CancelledAt)
	assert.Contains(t, outboxTypes(store), event.TypeAppointmentStatusChanged)

	// Already terminal.
	_, err = svc.Cancel(context.Background(), staffActor, appt.ID, "again")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestEditAppointment(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	seedAppointment(t, svc, office.ID, day.Add(10*time.Hour), 30)
	appt := seedAppointment(t, svc, office.ID, day.Add(14*time.Hour), 30)

	// Moving onto the other booking is rejected.
	clash := day.Add(10*time.Hour + 15*time.Minute)
	_, err := svc.Edit(context.Background(), staffActor, appt.ID, &model.EditAppointmentRequest{StartTime: &clash})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrScheduleConflict))

	// Moving within free time works, and keeping the same interval does
	// not conflict with itself.
	target := day.Add(15 * time.Hour)
	longer := 60
	got, err := svc.Edit(context.Background(), staffActor, appt.ID, &model.EditAppointmentRequest{StartTime: &target, DurationMinutes: &longer})
	require.NoError(t, err)
	assert.Equal(t, target, got.StartTime)
	assert.Equal(t, 60, got.DurationMinutes)
}

func TestEditOfficeWithAssignedDoctor(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	other := testOffice("09:00", "18:00")
	require.NoError(t, store.Offices().Create(context.Background(), other))
	doctor := seedDoctor(t, store, office.ID)
	appt := seedAppointment(t, svc, office.ID, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), 30)

	_, err := svc.AssignDoctor(context.Background(), staffActor, appt.ID, doctor.ID)
	require.NoError(t, err)

	// Moving the appointment to another office would strand the assigned
	// doctor outside their own office.
	_, err = svc.Edit(context.Background(), staffActor, appt.ID, &model.EditAppointmentRequest{OfficeID: &other.ID})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrOwnershipMismatch))

	got, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, office.ID, got.OfficeID)
	require.NotNil(t, got.DoctorID)
	assert.Equal(t, doctor.ID, *got.DoctorID)

	// Releasing the doctor first makes the move legal.
	_, err = svc.Release(context.Background(), staffActor, appt.ID)
	require.NoError(t, err)
	moved, err := svc.Edit(context.Background(), staffActor, appt.ID, &model.EditAppointmentRequest{OfficeID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, moved.OfficeID)
}

func TestEditAppointmentStatusGuard(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	appt := seedAppointment(t, svc, office.ID, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), 30)

	stored, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	stored.Status = model.AppointmentStatusWaiting
	require.NoError(t, store.Appointments().Update(context.Background(), stored))

	later := time.Date(2026, 1, 15, 16, 0, 0, 0, time.UTC)
	_, err = svc.Edit(context.Background(), staffActor, appt.ID, &model.EditAppointmentRequest{StartTime: &later})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestRescheduleAppointment(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	appt := seedAppointment(t, svc, office.ID, day.Add(10*time.Hour), 30)

	replacement, err := svc.Reschedule(context.Background(), staffActor, appt.ID, day.Add(16*time.Hour), 45)
	require.NoError(t, err)
	require.NotNil(t, replacement.RescheduledFromID)
	assert.Equal(t, appt.ID, *replacement.RescheduledFromID)
	assert.Equal(t, model.AppointmentStatusProgrammed, replacement.Status)
	assert.Equal(t, 45, replacement.DurationMinutes)

	old, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRescheduled, old.Status)

	// The old slot no longer occupies calendar time.
	_, err = svc.Create(context.Background(), staffActor, &model.CreateAppointmentRequest{
		PatientID:       uuid.New(),
		OfficeID:        office.ID,
		StartTime:       day.Add(10 * time.Hour),
		DurationMinutes: 30,
	})
	assert.NoError(t, err)
}

func TestFreeSlotsService(t *testing.T) {
	svc, store := newTestService(t)
	office := testOffice("09:00", "12:00")
	require.NoError(t, store.Offices().Create(context.Background(), office))
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	seedAppointment(t, svc, office.ID, day.Add(10*time.Hour), 30)

	slots, err := svc.FreeSlots(context.Background(), office.ID, day, 30, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, slots, 11)

	var occupied []string
	for _, slot := range slots {
		if slot.State == model.SlotStateOccupied {
			occupied = append(occupied, slot.Value)
		}
	}
	assert.Equal(t, []string{"09:45", "10:00", "10:15"}, occupied)
}
