package gormrepo

import (
	"context"
	"fmt"

	"github.com/St1cky1/todo-service/internal/entity"
	"gorm.io/gorm"
)

type TaskAuditRepository struct {
	db *gorm.DB
}

func NewTaskAuditRepository(db *gorm.DB) *TaskAuditRepository {
	return &TaskAuditRepository{db: db}
}

func (r *TaskAuditRepository) Create(ctx context.Context, audit *entity.TaskAudit) error {
	model := taskAuditModel{
		UserID:     audit.UserID,
		Action:     string(audit.Action),
		EntityType: audit.EntityType,
		EntityID:   audit.EntityID,
		OldValues:  audit.OldValues,
		NewValues:  audit.NewValues,
		Changes:    audit.Changes,
		ChangedAt:  audit.ChangedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create task audit: %w", err)
	}
	audit.ID = model.ID
	return nil
}

func (r *TaskAuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]entity.TaskAudit, error) {
	var models []taskAuditModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("changed_at DESC, id DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list task audit: %w", err)
	}

	audits := make([]entity.TaskAudit, 0, len(models))
	for _, m := range models {
		audits = append(audits, entity.TaskAudit{
			ID:         m.ID,
			UserID:     m.UserID,
			Action:     entity.ActionType(m.Action),
			EntityType: m.EntityType,
			EntityID:   m.EntityID,
			OldValues:  m.OldValues,
			NewValues:  m.NewValues,
			Changes:    m.Changes,
			ChangedAt:  m.ChangedAt,
		})
	}
	return audits, nil
}
