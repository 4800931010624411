package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository/memory"
	"github.com/medoffice/scheduler-api/pkg/event"
)

func seedPair(t *testing.T, store *memory.Store, apptStatus model.AppointmentStatus, consStatus model.ConsultationStatus) (*model.Appointment, *model.Consultation) {
	t.Helper()
	appt := &model.Appointment{
		Base:              model.Base{ID: uuid.New()},
		AppointmentNumber: "CIT-20260115-" + uuid.NewString()[:4],
		PatientID:         uuid.New(),
		OfficeID:          uuid.New(),
		StartTime:         time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		DurationMinutes:   30,
		Status:            apptStatus,
	}
	require.NoError(t, store.Appointments().Create(context.Background(), appt))

	cons := &model.Consultation{
		Base:          model.Base{ID: uuid.New()},
		PatientID:     appt.PatientID,
		AppointmentID: &appt.ID,
		Status:        consStatus,
		Kind:          model.ConsultationKindScheduled,
	}
	require.NoError(t, store.Consultations().Create(context.Background(), cons))
	return appt, cons
}

func TestConsultationChangedPropagation(t *testing.T) {
	cases := []struct {
		name       string
		consStatus model.ConsultationStatus
		want       model.AppointmentStatus
	}{
		{"in progress", model.ConsultationStatusInProgress, model.AppointmentStatusInAttendance},
		{"finished", model.ConsultationStatusFinished, model.AppointmentStatusCompleted},
		{"cancelled", model.ConsultationStatusCancelled, model.AppointmentStatusCancelled},
		{"waiting", model.ConsultationStatusWaiting, model.AppointmentStatusWaiting},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			appt, cons := seedPair(t, store, model.AppointmentStatusConfirmed, tc.consStatus)

			evts, err := New().ConsultationChanged(context.Background(), store, cons)
			require.NoError(t, err)
			require.Len(t, evts, 1)
			assert.Equal(t, event.TypeAppointmentStatusChanged, evts[0].Type)

			got, err := store.Appointments().Get(context.Background(), appt.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Status)
		})
	}
}

func TestConsultationChangedIdempotent(t *testing.T) {
	store := memory.NewStore()
	_, cons := seedPair(t, store, model.AppointmentStatusConfirmed, model.ConsultationStatusFinished)
	sync := New()

	first, err := sync.ConsultationChanged(context.Background(), store, cons)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	// Re-applying the same transition changes nothing and fires nothing.
	second, err := sync.ConsultationChanged(context.Background(), store, cons)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestConsultationChangedLeavesTerminalAppointment(t *testing.T) {
	store := memory.NewStore()
	appt, cons := seedPair(t, store, model.AppointmentStatusCompleted, model.ConsultationStatusCancelled)

	evts, err := New().ConsultationChanged(context.Background(), store, cons)
	require.NoError(t, err)
	assert.Empty(t, evts)

	got, err := store.Appointments().Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, got.Status)
}

func TestConsultationChangedUnbound(t *testing.T) {
	store := memory.NewStore()
	cons := &model.Consultation{
		Base:      model.Base{ID: uuid.New()},
		PatientID: uuid.New(),
		Status:    model.ConsultationStatusFinished,
		Kind:      model.ConsultationKindWalkIn,
	}
	require.NoError(t, store.Consultations().Create(context.Background(), cons))

	evts, err := New().ConsultationChanged(context.Background(), store, cons)
	require.NoError(t, err)
	assert.Empty(t, evts)
}

func TestAppointmentCancelledPropagation(t *testing.T) {
	store := memory.NewStore()
	appt, cons := seedPair(t, store, model.AppointmentStatusCancelled, model.ConsultationStatusWaiting)

	evts, err := New().AppointmentCancelled(context.Background(), store, appt)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, event.TypeConsultationStatusChanged, evts[0].Type)

	got, err := store.Consultations().Get(context.Background(), cons.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusCancelled, got.Status)
}

func TestAppointmentCancelledSparesFinished(t *testing.T) {
	store := memory.NewStore()
	appt, cons := seedPair(t, store, model.AppointmentStatusCancelled, model.ConsultationStatusFinished)

	evts, err := New().AppointmentCancelled(context.Background(), store, appt)
	require.NoError(t, err)
	assert.Empty(t, evts)

	got, err := store.Consultations().Get(context.Background(), cons.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusFinished, got.Status)
}

func TestDoctorReleasedResetsConsultation(t *testing.T) {
	store := memory.NewStore()
	appt, cons := seedPair(t, store, model.AppointmentStatusProgrammed, model.ConsultationStatusInProgress)
	doctorID := uuid.New()
	now := time.Now()
	cons.DoctorID = &doctorID
	cons.AttendedAt = &now
	require.NoError(t, store.Consultations().Update(context.Background(), cons))

	evts, err := New().DoctorReleased(context.Background(), store, appt)
	require.NoError(t, err)
	require.Len(t, evts, 1)

	got, err := store.Consultations().Get(context.Background(), cons.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusWaiting, got.Status)
	assert.Nil(t, got.DoctorID)
	assert.Nil(t, got.AttendedAt)
}

func TestSeedDoctor(t *testing.T) {
	doctorID := uuid.New()
	appt := &model.Appointment{DoctorID: &doctorID}
	cons := &model.Consultation{}

	sync := New()
	assert.True(t, sync.SeedDoctor(appt, cons))
	require.NotNil(t, cons.DoctorID)
	assert.Equal(t, doctorID, *cons.DoctorID)

	// The seed never overwrites an existing doctor.
	other := uuid.New()
	cons.DoctorID = &other
	assert.False(t, sync.SeedDoctor(appt, cons))
	assert.Equal(t, other, *cons.DoctorID)

	assert.False(t, sync.SeedDoctor(&model.Appointment{}, &model.Consultation{}))
}
