package consultation

import (
	"context"
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
	"github.com/medoffice/scheduler-api/pkg/logger"
)

var staffActor = model.Actor{UserID: uuid.New(), Role: model.ActorRoleStaff}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	log := logger.NewLogger(nil)
	return NewService(store, syncer.New(), audit.NewService(store.Audit(), log), log), store
}

func seedAppointment(t *testing.T, store *memory.Store, status model.AppointmentStatus, doctorID *uuid.UUID) *model.Appointment {
	t.Helper()
	appt := &model.Appointment{
		Base:              model.Base{ID: uuid.New()},
		AppointmentNumber: "CIT-20260115-" + uuid.NewString()[:4],
		PatientID:         uuid.New(),
		OfficeID:          uuid.New(),
		DoctorID:          doctorID,
		StartTime:         time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		DurationMinutes:   30,
		Status:            status,
	}
	require.NoError(t, store.Appointments().Create(context.Background(), appt))
	return appt
}

func TestCreateScheduledConsultation(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := uuid.New()
	appt := seedAppointment(t, store, model.AppointmentStatusConfirmed, &doctorID)

	cons, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{
		AppointmentID: &appt.ID,
		Reason:        "chest pain",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ConsultationKindScheduled, cons.Kind)
	assert.Equal(t, model.ConsultationStatusWaiting, cons.Status)
	assert.Equal(t, appt.PatientID, cons.PatientID)
	// The appointment's doctor is seeded onto the consultation.
	require.NotNil(t, cons.DoctorID)
	assert.Equal(t, doctorID, *cons.DoctorID)

	// The patient has arrived: the appointment moves to waiting.
	got, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusWaiting, got.Status)

	// One consultation per appointment.
	_, err = svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{AppointmentID: &appt.ID})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestCreateScheduledConsultationTerminalAppointment(t *testing.T) {
	svc, store := newTestService(t)
	appt := seedAppointment(t, store, model.AppointmentStatusCancelled, nil)

	_, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{AppointmentID: &appt.ID})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestCreateWalkInDuplicateGuard(t *testing.T) {
	svc, _ := newTestService(t)
	patientID := uuid.New()

	first, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{PatientID: patientID})
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationKindWalkIn, first.Kind)
	assert.Equal(t, model.ConsultationStatusWaiting, first.Status)

	// The same patient cannot join the walk-in queue twice.
	_, err = svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{PatientID: patientID})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	// Once the first is cancelled the queue is open again.
	_, err = svc.Cancel(context.Background(), staffActor, first.ID)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{PatientID: patientID})
	assert.NoError(t, err)
}

func TestCreateWalkInAppointmentOverlap(t *testing.T) {
	svc, store := newTestService(t)
	patientID := uuid.New()

	appt := &model.Appointment{
		Base:              model.Base{ID: uuid.New()},
		AppointmentNumber: "CIT-20260115-0001",
		PatientID:         patientID,
		OfficeID:          uuid.New(),
		StartTime:         time.Now().Add(10 * time.Minute),
		DurationMinutes:   30,
		Status:            model.AppointmentStatusConfirmed,
	}
	require.NoError(t, store.Appointments().Create(context.Background(), appt))

	// The assumed 30-minute walk-in window runs into the patient's own
	// upcoming appointment.
	_, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{PatientID: patientID})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrScheduleConflict))
}

func TestStartConsultation(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := uuid.New()
	appt := seedAppointment(t, store, model.AppointmentStatusConfirmed, &doctorID)

	cons, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{AppointmentID: &appt.ID})
	require.NoError(t, err)

	started, err := svc.Start(context.Background(), staffActor, cons.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusInProgress, started.Status)
	assert.NotNil(t, started.AttendedAt)

	got, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusInAttendance, got.Status)

	// Already in progress.
	_, err = svc.Start(context.Background(), staffActor, cons.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestStartConsultationDoctorBusy(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := uuid.New()

	first := seedAppointment(t, store, model.AppointmentStatusConfirmed, &doctorID)
	busy, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{AppointmentID: &first.ID})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), staffActor, busy.ID)
	require.NoError(t, err)

	second := seedAppointment(t, store, model.AppointmentStatusConfirmed, &doctorID)
	queued, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{AppointmentID: &second.ID})
	require.NoError(t, err)

	// One in-progress encounter per doctor, system-wide.
	_, err = svc.Start(context.Background(), staffActor, queued.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDoctorBusy))
}

func TestStartConsultationActingDoctorFallback(t *testing.T) {
	svc, _ := newTestService(t)
	patientID := uuid.New()

	cons, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{PatientID: patientID})
	require.NoError(t, err)

	// A walk-in has no seeded doctor; staff cannot start it.
	_, err = svc.Start(context.Background(), staffActor, cons.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	doctorID := uuid.New()
	doctorActor := model.Actor{UserID: uuid.New(), Role: model.ActorRoleDoctor, DoctorID: &doctorID}
	started, err := svc.Start(context.Background(), doctorActor, cons.ID)
	require.NoError(t, err)
	require.NotNil(t, started.DoctorID)
	assert.Equal(t, doctorID, *started.DoctorID)
}

func TestFinishConsultationPropagatesAndIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := uuid.New()
	appt := seedAppointment(t, store, model.AppointmentStatusConfirmed, &doctorID)

	cons, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{AppointmentID: &appt.ID})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), staffActor, cons.ID)
	require.NoError(t, err)

	finished, err := svc.Finish(context.Background(), staffActor, cons.ID, &model.FinishConsultationRequest{
		Diagnosis: "acute bronchitis",
		Treatment: "rest and fluids",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusFinished, finished.Status)
	assert.NotNil(t, finished.FinishedAt)
	assert.Equal(t, "acute bronchitis", finished.Diagnosis)

	got, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, got.Status)

	eventsBefore := len(store.OutboxEvents)

	// Finishing again is a no-op: success, no state change, no new events.
	again, err := svc.Finish(context.Background(), staffActor, cons.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusFinished, again.Status)
	assert.Equal(t, "acute bronchitis", again.Diagnosis)
	assert.Len(t, store.OutboxEvents, eventsBefore)

	// The doctor is free again.
	count, err := store.Consultations().CountInProgressForDoctor(context.Background(), doctorID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFinishConsultationFromWaiting(t *testing.T) {
	svc, store := newTestService(t)
	appt := seedAppointment(t, store, model.AppointmentStatusConfirmed, nil)
	cons, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{AppointmentID: &appt.ID})
	require.NoError(t, err)

	_, err = svc.Finish(context.Background(), staffActor, cons.ID, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestCancelConsultationRoundTrip(t *testing.T) {
	svc, store := newTestService(t)
	appt := seedAppointment(t, store, model.AppointmentStatusConfirmed, nil)
	cons, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{AppointmentID: &appt.ID})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), staffActor, cons.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusCancelled, cancelled.Status)

	// Cancellation reaches the bound appointment.
	got, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
	require.NotNil(t, got.CancelReason)

	// Cancelling again is a no-op.
	_, err = svc.Cancel(context.Background(), staffActor, cons.ID)
	assert.NoError(t, err)
}

func TestCancelFinishedConsultation(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := uuid.New()
	appt := seedAppointment(t, store, model.AppointmentStatusConfirmed, &doctorID)
	cons, err := svc.Create(context.Background(), staffActor, &model.CreateConsultationRequest{AppointmentID: &appt.ID})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), staffActor, cons.ID)
	require.NoError(t, err)
	_, err = svc.Finish(context.Background(), staffActor, cons.ID, nil)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), staffActor, cons.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	// The completed appointment is untouched.
	got, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, got.Status)
}
