package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
)

const consultationColumns = `id, patient_id, appointment_id, doctor_id, status, kind,
	reason, diagnosis, treatment, notes, attended_at, finished_at,
	created_at, updated_at, deleted_at`

func (r *consultationRepository) Create(ctx context.Context, consultation *model.Consultation) error {
	query := `
		INSERT INTO consultations (
			id, patient_id, appointment_id, doctor_id, status, kind,
			reason, diagnosis, treatment, notes, attended_at, finished_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		consultation.ID,
		consultation.PatientID,
		consultation.AppointmentID,
		consultation.DoctorID,
		consultation.Status,
		consultation.Kind,
		consultation.Reason,
		consultation.Diagnosis,
		consultation.Treatment,
		consultation.Notes,
		consultation.AttendedAt,
		consultation.FinishedAt,
		consultation.CreatedAt,
		consultation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", mapError(err))
	}
	return nil
}

func (r *consultationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1 AND deleted_at IS NULL`

	var consultation model.Consultation
	if err := r.db.GetContext(ctx, &consultation, query, id); err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", mapError(err))
	}
	return &consultation, nil
}

func (r *consultationRepository) Update(ctx context.Context, consultation *model.Consultation) error {
	query := `
		UPDATE consultations
		SET doctor_id = $1, status = $2, reason = $3, diagnosis = $4,
			treatment = $5, notes = $6, attended_at = $7, finished_at = $8,
			updated_at = $9
		WHERE id = $10 AND deleted_at IS NULL
	`
	consultation.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		consultation.DoctorID,
		consultation.Status,
		consultation.Reason,
		consultation.Diagnosis,
		consultation.Treatment,
		consultation.Notes,
		consultation.AttendedAt,
		consultation.FinishedAt,
		consultation.UpdatedAt,
		consultation.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update consultation: %w", mapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to update consultation: %w", repository.ErrNotFound)
	}

	return nil
}

func (r *consultationRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE appointment_id = $1 AND deleted_at IS NULL`

	var consultation model.Consultation
	err := r.db.GetContext(ctx, &consultation, query, appointmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consultation by appointment: %w", err)
	}
	return &consultation, nil
}

func (r *consultationRepository) CountInProgressForDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM consultations
		WHERE doctor_id = $1 AND status = 'in_progress' AND deleted_at IS NULL
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query, doctorID); err != nil {
		return 0, fmt.Errorf("failed to count in-progress consultations: %w", err)
	}
	return count, nil
}

func (r *consultationRepository) ListActiveWalkInsForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE patient_id = $1
		AND kind = 'walk_in'
		AND status IN ('waiting', 'in_progress')
		AND deleted_at IS NULL
		ORDER BY created_at ASC
	`
	var consultations []*model.Consultation
	if err := r.db.SelectContext(ctx, &consultations, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list walk-in consultations: %w", err)
	}
	return consultations, nil
}
