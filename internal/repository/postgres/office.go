package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
)

func (r *officeRepository) Create(ctx context.Context, office *model.Office) error {
	query := `
		INSERT INTO offices (id, name, opens_at, closes_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	office.CreatedAt = time.Now()
	office.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		office.ID,
		office.Name,
		office.OpensAt,
		office.ClosesAt,
		office.Active,
		office.CreatedAt,
		office.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create office: %w", mapError(err))
	}
	return nil
}

func (r *officeRepository) Get(ctx context.Context, id uuid.UUID) (*model.Office, error) {
	query := `
		SELECT id, name, opens_at, closes_at, active, created_at, updated_at, deleted_at
		FROM offices
		WHERE id = $1 AND deleted_at IS NULL
	`
	var office model.Office
	if err := r.db.GetContext(ctx, &office, query, id); err != nil {
		return nil, fmt.Errorf("failed to get office: %w", mapError(err))
	}
	return &office, nil
}

func (r *officeRepository) List(ctx context.Context) ([]*model.Office, error) {
	query := `
		SELECT id, name, opens_at, closes_at, active, created_at, updated_at, deleted_at
		FROM offices
		WHERE deleted_at IS NULL
		ORDER BY name ASC
	`
	var offices []*model.Office
	if err := r.db.SelectContext(ctx, &offices, query); err != nil {
		return nil, fmt.Errorf("failed to list offices: %w", err)
	}
	return offices, nil
}
