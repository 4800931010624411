package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
)

const appointmentColumns = `id, appointment_number, patient_id, office_id, doctor_id,
	preferred_doctor_id, start_time, duration_minutes, status, priority,
	notes, cancel_reason, confirmed_at, cancelled_at, doctor_assigned_at,
	rescheduled_from_id, created_at, updated_at, deleted_at`

// prefixedAppointmentColumns qualifies the column list with a table alias
// for joined queries.
func prefixedAppointmentColumns(alias string) string {
	cols := strings.Split(appointmentColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, appointment_number, patient_id, office_id, doctor_id,
			preferred_doctor_id, start_time, duration_minutes, status,
			priority, notes, cancel_reason, confirmed_at, cancelled_at,
			doctor_assigned_at, rescheduled_from_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.AppointmentNumber,
		appointment.PatientID,
		appointment.OfficeID,
		appointment.DoctorID,
		appointment.PreferredDoctorID,
		appointment.StartTime,
		appointment.DurationMinutes,
		appointment.Status,
		appointment.Priority,
		appointment.Notes,
		appointment.CancelReason,
		appointment.ConfirmedAt,
		appointment.CancelledAt,
		appointment.DoctorAssignedAt,
		appointment.RescheduledFromID,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", mapError(err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND deleted_at IS NULL`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", mapError(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET patient_id = $1, office_id = $2, doctor_id = $3,
			preferred_doctor_id = $4, start_time = $5, duration_minutes = $6,
			status = $7, priority = $8, notes = $9, cancel_reason = $10,
			confirmed_at = $11, cancelled_at = $12, doctor_assigned_at = $13,
			rescheduled_from_id = $14, updated_at = $15
		WHERE id = $16 AND deleted_at IS NULL
	`
	appointment.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		appointment.PatientID,
		appointment.OfficeID,
		appointment.DoctorID,
		appointment.PreferredDoctorID,
		appointment.StartTime,
		appointment.DurationMinutes,
		appointment.Status,
		appointment.Priority,
		appointment.Notes,
		appointment.CancelReason,
		appointment.ConfirmedAt,
		appointment.CancelledAt,
		appointment.DoctorAssignedAt,
		appointment.RescheduledFromID,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", mapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to update appointment: %w", repository.ErrNotFound)
	}

	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE deleted_at IS NULL`
	args := []interface{}{}
	argCount := 1

	if filters.OfficeID != uuid.Nil {
		query += fmt.Sprintf(" AND office_id = $%d", argCount)
		args = append(args, filters.OfficeID)
		argCount++
	}
	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, filters.DoctorID)
		argCount++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND start_time >= $%d", argCount)
		args = append(args, filters.StartDate)
		argCount++
	}
	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND start_time < $%d", argCount)
		args = append(args, filters.EndDate)
		argCount++
	}

	query += " ORDER BY start_time ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListActiveForOfficeDay(ctx context.Context, officeID uuid.UUID, day time.Time) ([]*model.Appointment, error) {
	y, m, d := day.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE office_id = $1
		AND start_time >= $2 AND start_time < $3
		AND status IN ('programmed', 'confirmed', 'waiting', 'in_attendance')
		AND deleted_at IS NULL
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, officeID, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("failed to list office appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListActiveForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		AND status IN ('programmed', 'confirmed', 'waiting', 'in_attendance')
		AND deleted_at IS NULL
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListExpirable(ctx context.Context, now time.Time, limit int) ([]*model.Appointment, error) {
	query := `
		SELECT ` + prefixedAppointmentColumns("a") + `
		FROM appointments a
		LEFT JOIN consultations c ON c.appointment_id = a.id
		WHERE a.start_time < $1
		AND a.status IN ('programmed', 'confirmed')
		AND a.deleted_at IS NULL
		AND c.id IS NULL
		ORDER BY a.start_time ASC
		LIMIT $2
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to list expirable appointments: %w", err)
	}
	return appointments, nil
}
