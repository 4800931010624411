package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
)

func newMockRepo(t *testing.T) (repository.AppointmentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAppointmentRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func appointmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "appointment_number", "patient_id", "office_id", "doctor_id",
		"preferred_doctor_id", "start_time", "duration_minutes", "status", "priority",
		"notes", "cancel_reason", "confirmed_at", "cancelled_at", "doctor_assigned_at",
		"rescheduled_from_id", "created_at", "updated_at", "deleted_at",
	})
}

func TestAppointmentCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	appt := &model.Appointment{
		Base:              model.Base{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		AppointmentNumber: "CIT-20260115-0042",
		PatientID:         uuid.New(),
		OfficeID:          uuid.New(),
		StartTime:         time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		DurationMinutes:   30,
		Status:            model.AppointmentStatusProgrammed,
		Priority:          model.AppointmentPriorityNormal,
	}

	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), appt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentCreateDuplicateNumber(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &model.Appointment{
		Base:              model.Base{ID: uuid.New()},
		AppointmentNumber: "CIT-20260115-0042",
		Status:            model.AppointmentStatusProgrammed,
		Priority:          model.AppointmentPriorityNormal,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestAppointmentGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .+ FROM appointments").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentGet(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	rows := appointmentRows().AddRow(
		id, "CIT-20260115-0042", uuid.New(), uuid.New(), nil,
		nil, start, 30, "programmed", "normal",
		"", nil, nil, nil, nil,
		nil, time.Now(), time.Now(), nil,
	)
	mock.ExpectQuery("SELECT .+ FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(rows)

	appt, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, appt.ID)
	assert.Equal(t, "CIT-20260115-0042", appt.AppointmentNumber)
	assert.Equal(t, model.AppointmentStatusProgrammed, appt.Status)
	assert.True(t, start.Equal(appt.StartTime))
}

func TestAppointmentUpdateMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE appointments").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.Appointment{
		Base:   model.Base{ID: uuid.New()},
		Status: model.AppointmentStatusProgrammed,
	})
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestListActiveForOfficeDay(t *testing.T) {
	repo, mock := newMockRepo(t)

	officeID := uuid.New()
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	first := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	second := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	rows := appointmentRows().
		AddRow(uuid.New(), "CIT-20260115-0001", uuid.New(), officeID, nil,
			nil, first, 30, "programmed", "normal",
			"", nil, nil, nil, nil, nil, time.Now(), time.Now(), nil).
		AddRow(uuid.New(), "CIT-20260115-0002", uuid.New(), officeID, nil,
			nil, second, 45, "confirmed", "normal",
			"", nil, nil, nil, nil, nil, time.Now(), time.Now(), nil)

	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs(officeID, day, day.Add(24*time.Hour)).
		WillReturnRows(rows)

	appts, err := repo.ListActiveForOfficeDay(context.Background(), officeID, day)
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.True(t, appts[0].StartTime.Before(appts[1].StartTime))
	assert.NoError(t, mock.ExpectationsWereMet())
}
