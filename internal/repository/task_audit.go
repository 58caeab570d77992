package repository

import (
	"context"
	"fmt"

	"github.com/St1cky1/todo-service/internal/entity"
)

type TaskAuditRepository struct {
	db DBTX
}

func NewTaskAuditRepository(db DBTX) *TaskAuditRepository {
	return &TaskAuditRepository{
		db: db,
	}
}

func (r *TaskAuditRepository) Create(ctx context.Context, audit *entity.TaskAudit) error {
	query := `
	INSERT INTO task_audit (user_id, action, entity_type, entity_id, old_values, new_values, changes, changed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		audit.UserID,
		audit.Action,
		audit.EntityType,
		audit.EntityID,
		audit.OldValues,
		audit.NewValues,
		audit.Changes,
		audit.ChangedAt,
	).Scan(&audit.ID)
	if err != nil {
		return fmt.Errorf("insert task audit: %w", err)
	}

	return nil
}

// ListByEntity - история изменений, последние первыми
func (r *TaskAuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]entity.TaskAudit, error) {
	query := `
	SELECT id, user_id, action, entity_type, entity_id, old_values, new_values, changes, changed_at
	FROM task_audit
	WHERE entity_type = $1 AND entity_id = $2
	ORDER BY changed_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list task audit: %w", err)
	}
	defer rows.Close()

	audits := make([]entity.TaskAudit, 0)
	for rows.Next() {
		var audit entity.TaskAudit
		err := rows.Scan(
			&audit.ID,
			&audit.UserID,
			&audit.Action,
			&audit.EntityType,
			&audit.EntityID,
			&audit.OldValues,
			&audit.NewValues,
			&audit.Changes,
			&audit.ChangedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task audit: %w", err)
		}
		audits = append(audits, audit)
	}

	return audits, rows.Err()
}
