package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
)

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (id, first_name, last_name, email, office_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.FirstName,
		doctor.LastName,
		doctor.Email,
		doctor.OfficeID,
		doctor.Active,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", mapError(err))
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, first_name, last_name, email, office_id, active, created_at, updated_at, deleted_at
		FROM doctors
		WHERE id = $1 AND deleted_at IS NULL
	`
	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", mapError(err))
	}
	return &doctor, nil
}

func (r *doctorRepository) ListByOffice(ctx context.Context, officeID uuid.UUID) ([]*model.Doctor, error) {
	query := `
		SELECT id, first_name, last_name, email, office_id, active, created_at, updated_at, deleted_at
		FROM doctors
		WHERE office_id = $1 AND active = true AND deleted_at IS NULL
		ORDER BY last_name ASC, first_name ASC
	`
	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, officeID); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}
