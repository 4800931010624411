package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/medoffice/scheduler-api/internal/model"
)

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, actor_id, office_id, action, entity_type, entity_id,
			changes, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.ActorID,
		log.OfficeID,
		log.Action,
		log.EntityType,
		log.EntityID,
		log.Changes,
		log.Metadata,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	query := `
		SELECT id, actor_id, office_id, action, entity_type, entity_id,
			   changes, metadata, created_at
		FROM audit_logs
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if v, ok := filters["entity_type"]; ok {
		query += fmt.Sprintf(" AND entity_type = $%d", argCount)
		args = append(args, v)
		argCount++
	}
	if v, ok := filters["entity_id"]; ok {
		query += fmt.Sprintf(" AND entity_id = $%d", argCount)
		args = append(args, v)
		argCount++
	}
	if v, ok := filters["actor_id"]; ok {
		query += fmt.Sprintf(" AND actor_id = $%d", argCount)
		args = append(args, v)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	var logs []*model.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM audit_logs WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit logs: %w", err)
	}
	return result.RowsAffected()
}
