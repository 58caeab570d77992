package usecase

import (
	"context"
	"fmt"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/St1cky1/todo-service/internal/repository"
)

// TaskHistoryService отдает журнал изменений задачи ее владельцу
type TaskHistoryService struct {
	tasks     ITaskService
	auditRepo repository.ITaskAuditRepository
}

func NewTaskHistoryService(tasks ITaskService, auditRepo repository.ITaskAuditRepository) *TaskHistoryService {
	return &TaskHistoryService{
		tasks:     tasks,
		auditRepo: auditRepo,
	}
}

// GetTaskHistory - сначала проверка владельца через GetTask, затем журнал
func (s *TaskHistoryService) GetTaskHistory(ctx context.Context, ownerID, taskID string) ([]entity.TaskAudit, error) {
	if _, err := s.tasks.GetTask(ctx, ownerID, taskID); err != nil {
		return nil, err
	}

	audits, err := s.auditRepo.ListByEntity(ctx, entity.AuditEntityTask, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task history: %w", err)
	}
	if audits == nil {
		audits = []entity.TaskAudit{}
	}
	return audits, nil
}
