package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/St1cky1/todo-service/internal/logging"
	"github.com/sirupsen/logrus"
)

// AuditPublisher - интерфейс для публикации аудита (RabbitMQ)
type AuditPublisher interface {
	PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error
}

// TaskChangeTracker - ITaskService, мутации которого отдают состояние до изменения
type TaskChangeTracker interface {
	ITaskService
	UpdateTaskWithPrevious(ctx context.Context, ownerID, taskID string, req *entity.UpdateTaskRequest) (*entity.Task, *entity.Task, error)
	DeleteTaskWithPrevious(ctx context.Context, ownerID, taskID string) (*entity.Task, error)
}

const auditPublishTimeout = 5 * time.Second

// AuditedTaskService оборачивает ITaskService и после успешной записи
// асинхронно отправляет аудит. Ошибки публикации только логируются.
type AuditedTaskService struct {
	ITaskService
	tracker   TaskChangeTracker
	publisher AuditPublisher
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewAuditedTaskService(inner TaskChangeTracker, publisher AuditPublisher) *AuditedTaskService {
	return &AuditedTaskService{
		ITaskService: inner,
		tracker:      inner,
		publisher:    publisher,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuditedTaskService) CreateTask(ctx context.Context, ownerID string, req *entity.CreateTaskRequest) (*entity.Task, error) {
	task, err := s.ITaskService.CreateTask(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}

	s.sendAuditMessage(entity.ActionCreate, ownerID, task.ID, nil, task)
	return task, nil
}

func (s *AuditedTaskService) UpdateTask(ctx context.Context, ownerID, taskID string, req *entity.UpdateTaskRequest) (*entity.Task, error) {
	oldTask, task, err := s.tracker.UpdateTaskWithPrevious(ctx, ownerID, taskID, req)
	if err != nil {
		return nil, err
	}

	s.sendAuditMessage(entity.ActionUpdate, ownerID, taskID, oldTask, task)
	return task, nil
}

func (s *AuditedTaskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	oldTask, err := s.tracker.DeleteTaskWithPrevious(ctx, ownerID, taskID)
	if err != nil {
		return err
	}

	s.sendAuditMessage(entity.ActionDelete, ownerID, taskID, oldTask, nil)
	return nil
}

// Wait дожидается отправки всех начатых сообщений, вызывается при остановке
func (s *AuditedTaskService) Wait() {
	s.wg.Wait()
}

func (s *AuditedTaskService) sendAuditMessage(action entity.ActionType, userID, taskID string, oldTask, newTask *entity.Task) {
	auditMsg := buildAuditMessage(action, userID, taskID, oldTask, newTask, s.now())

	// Асинхронная отправка, запрос пользователя не ждет брокер
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), auditPublishTimeout)
		defer cancel()

		log := logging.Logger.WithFields(logrus.Fields{
			"action":  action,
			"task_id": taskID,
			"user_id": userID,
		})
		if err := s.publisher.PublishAuditMessage(ctx, auditMsg); err != nil {
			log.WithError(err).Error("❌ Ошибка отправки аудита в RabbitMQ")
			return
		}
		log.Debug("Аудит отправлен в RabbitMQ")
	}()
}

func buildAuditMessage(action entity.ActionType, userID, taskID string, oldTask, newTask *entity.Task, at time.Time) *entity.AuditMessage {
	auditMsg := &entity.AuditMessage{
		Action:    action,
		UserID:    userID,
		EntityID:  taskID,
		Timestamp: at,
	}

	// Заполняем данные в зависимости от действия
	switch action {
	case entity.ActionCreate:
		if newTask != nil {
			auditMsg.NewValues = taskSnapshot(newTask, true)
		}

	case entity.ActionUpdate:
		if oldTask != nil && newTask != nil {
			auditMsg.OldValues = taskSnapshot(oldTask, false)
			auditMsg.NewValues = taskSnapshot(newTask, false)
			auditMsg.Changes = taskChanges(oldTask, newTask)
		}

	case entity.ActionDelete:
		if oldTask != nil {
			auditMsg.OldValues = taskSnapshot(oldTask, true)
		}
	}

	return auditMsg
}

func taskSnapshot(t *entity.Task, withOwner bool) map[string]any {
	values := map[string]any{
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
	}
	if withOwner {
		values["owner_id"] = t.OwnerID
	}
	return values
}

// taskChanges - только поля, которые реально изменились
func taskChanges(oldTask, newTask *entity.Task) map[string]any {
	changes := make(map[string]any)
	if oldTask.Title != newTask.Title {
		changes["title"] = map[string]any{"old": oldTask.Title, "new": newTask.Title}
	}
	if derefString(oldTask.Description) != derefString(newTask.Description) || (oldTask.Description == nil) != (newTask.Description == nil) {
		changes["description"] = map[string]any{"old": oldTask.Description, "new": newTask.Description}
	}
	if oldTask.Completed != newTask.Completed {
		changes["completed"] = map[string]any{"old": oldTask.Completed, "new": newTask.Completed}
	}
	return changes
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
