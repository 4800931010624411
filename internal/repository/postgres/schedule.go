package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
)

func (r *scheduleRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorSchedule, error) {
	query := `
		SELECT id, doctor_id, office_id, weekday, starts_at, ends_at, created_at, updated_at, deleted_at
		FROM doctor_schedules
		WHERE doctor_id = $1 AND deleted_at IS NULL
		ORDER BY weekday ASC, starts_at ASC
	`
	var schedules []*model.DoctorSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list doctor schedules: %w", err)
	}
	return schedules, nil
}

func (r *scheduleRepository) ListForOfficeDay(ctx context.Context, officeID uuid.UUID, weekday time.Weekday) ([]*model.DoctorSchedule, error) {
	query := `
		SELECT id, doctor_id, office_id, weekday, starts_at, ends_at, created_at, updated_at, deleted_at
		FROM doctor_schedules
		WHERE office_id = $1 AND weekday = $2 AND deleted_at IS NULL
		ORDER BY starts_at ASC
	`
	var schedules []*model.DoctorSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, officeID, int(weekday)); err != nil {
		return nil, fmt.Errorf("failed to list office schedules: %w", err)
	}
	return schedules, nil
}
