package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medoffice/scheduler-api/internal/model"
)

func TestSweepExpired(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	now := time.Date(2026, 1, 15, 13, 0, 0, 0, time.UTC)

	// Three hours in the past, confirmed, never attended.
	stale := seedAppointment(t, svc, office.ID, now.Add(-3*time.Hour), 30)
	// Also past, but a consultation was opened for it.
	attended := seedAppointment(t, svc, office.ID, now.Add(-2*time.Hour), 30)
	require.NoError(t, store.Consultations().Create(context.Background(), &model.Consultation{
		Base:          model.Base{ID: uuid.New()},
		PatientID:     attended.PatientID,
		AppointmentID: &attended.ID,
		Status:        model.ConsultationStatusWaiting,
		Kind:          model.ConsultationKindScheduled,
	}))
	// Still in the future.
	upcoming := seedAppointment(t, svc, office.ID, now.Add(2*time.Hour), 30)

	result, err := svc.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 0, result.Failed)

	got, err := store.Appointments().Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusNoShow, got.Status)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, now, *got.CancelledAt)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, NoShowReason, *got.CancelReason)

	for _, id := range []uuid.UUID{attended.ID, upcoming.ID} {
		a, err := store.Appointments().Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusProgrammed, a.Status)
	}
}

func TestSweepExpiredIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	office := seedOffice(t, store)
	now := time.Date(2026, 1, 15, 13, 0, 0, 0, time.UTC)
	seedAppointment(t, svc, office.ID, now.Add(-3*time.Hour), 30)

	first, err := svc.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Expired)

	second, err := svc.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Expired)
	assert.Equal(t, 0, second.Failed)
}
