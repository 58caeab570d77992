package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, title, description, completed, owner_id, created_at, updated_at`

type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{
		db: db,
	}
}

func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	query := `
	INSERT INTO tasks (` + taskColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Completed,
		task.OwnerID,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	return nil
}

// GetByIDAndOwner - чужая задача неотличима от отсутствующей
func (r *TaskRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*entity.Task, error) {
	if !isUUID(id) {
		return nil, nil
	}

	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE id = $1 AND owner_id = $2
	`

	task, err := scanTask(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select task: %w", err)
	}

	return task, nil
}

// Update - перезаписываем изменяемые поля. owner_id в условии, а не в SET
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	if !isUUID(task.ID) {
		return entity.ErrTaskNotFound
	}

	query := `
	UPDATE tasks
	SET title = $1, description = $2, completed = $3, updated_at = $4
	WHERE id = $5 AND owner_id = $6
	`

	tag, err := r.db.Exec(ctx, query,
		task.Title,
		task.Description,
		task.Completed,
		task.UpdatedAt,
		task.ID,
		task.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id, ownerID string) error {
	if !isUUID(id) {
		return entity.ErrTaskNotFound
	}

	query := `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrTaskNotFound
	}

	return nil
}

// ListByOwner - новые задачи первыми
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE owner_id = $1
	ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]entity.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*entity.Task, error) {
	var task entity.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&task.OwnerID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// колонка id имеет тип UUID, произвольная строка из URL уронит запрос
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
