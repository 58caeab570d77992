package entity

import "time"

const (
	TitleMaxLength       = 100
	DescriptionMaxLength = 500
)

// Task - задача пользователя. OwnerID не меняется после создания.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required,max=100"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	Completed   bool      `json:"completed"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// валидация выполняется в usecase по тегам Task
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// UpdateTaskRequest - частичное обновление, nil значит "не менять"
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}
