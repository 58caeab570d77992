package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/St1cky1/todo-service/internal/repository"
	"github.com/google/uuid"
)

// ITaskService - операции над задачами от имени владельца
type ITaskService interface {
	CreateTask(ctx context.Context, ownerID string, req *entity.CreateTaskRequest) (*entity.Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]entity.Task, error)
	GetTask(ctx context.Context, ownerID, taskID string) (*entity.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, req *entity.UpdateTaskRequest) (*entity.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

type TaskService struct {
	taskRepo repository.ITaskRepository
	now      func() time.Time
	newID    func() string
}

var _ TaskChangeTracker = (*TaskService)(nil)

type TaskServiceOption func(*TaskService)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) TaskServiceOption {
	return func(s *TaskService) { s.now = now }
}

// WithIDGenerator подменяет генератор id задач
func WithIDGenerator(newID func() string) TaskServiceOption {
	return func(s *TaskService) { s.newID = newID }
}

func NewTaskService(taskRepo repository.ITaskRepository, opts ...TaskServiceOption) *TaskService {
	s := &TaskService{
		taskRepo: taskRepo,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp - точность TIMESTAMPTZ в Postgres, иначе ответ POST/PATCH расходится с GET
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// CreateTask - владелец берется из аутентификации, не из тела запроса
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, req *entity.CreateTaskRequest) (*entity.Task, error) {
	now := s.timestamp()
	task := &entity.Task{
		ID:          s.newID(),
		Title:       req.Title,
		Description: normalizeDescription(req.Description),
		Completed:   false,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := validateStruct(task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, ownerID string) ([]entity.Task, error) {
	tasks, err := s.taskRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}
	return tasks, nil
}

// GetTask - чужая задача и отсутствующая дают одну и ту же ошибку
func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID string) (*entity.Task, error) {
	task, err := s.taskRepo.GetByIDAndOwner(ctx, taskID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, entity.ErrTaskNotFound
	}
	return task, nil
}

// UpdateTask - применяем только переданные поля, пустой запрос только обновляет updatedAt
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID string, req *entity.UpdateTaskRequest) (*entity.Task, error) {
	_, updated, err := s.UpdateTaskWithPrevious(ctx, ownerID, taskID, req)
	return updated, err
}

// UpdateTaskWithPrevious - UpdateTask, дополнительно возвращает состояние до изменения
func (s *TaskService) UpdateTaskWithPrevious(ctx context.Context, ownerID, taskID string, req *entity.UpdateTaskRequest) (*entity.Task, *entity.Task, error) {
	// 1. Получаем задачу с проверкой владельца
	current, err := s.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, nil, err
	}

	// 2. Применяем изменения к копии
	updated := *current
	if req.Title != nil {
		updated.Title = *req.Title
	}
	if req.Description != nil {
		updated.Description = normalizeDescription(req.Description)
	}
	if req.Completed != nil {
		updated.Completed = *req.Completed
	}

	// 3. Валидируем результат, хранилище при ошибке не трогаем
	if err := validateStruct(&updated); err != nil {
		return nil, nil, err
	}

	updated.UpdatedAt = s.timestamp()

	// 4. Сохраняем, owner_id снова в условии записи
	if err := s.taskRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, entity.ErrTaskNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("update task: %w", err)
	}

	return current, &updated, nil
}

// DeleteTask - повторное удаление возвращает ErrTaskNotFound
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := s.taskRepo.Delete(ctx, taskID, ownerID); err != nil {
		if errors.Is(err, entity.ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// DeleteTaskWithPrevious - удаление с возвратом удаленной задачи
func (s *TaskService) DeleteTaskWithPrevious(ctx context.Context, ownerID, taskID string) (*entity.Task, error) {
	current, err := s.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.DeleteTask(ctx, ownerID, taskID); err != nil {
		return nil, err
	}
	return current, nil
}

// пустое описание храним как NULL
func normalizeDescription(desc *string) *string {
	if desc == nil || *desc == "" {
		return nil
	}
	d := *desc
	return &d
}
