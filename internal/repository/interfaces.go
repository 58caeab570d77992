package repository

import (
	"context"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
)

// ITaskRepository - хранилище задач. Все чтения и записи, кроме Create,
// ограничены владельцем: id = ? AND owner_id = ?
type ITaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	// GetByIDAndOwner возвращает nil, nil если задачи нет или она чужая
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*entity.Task, error)
	// Update возвращает entity.ErrTaskNotFound если строка не затронута
	Update(ctx context.Context, task *entity.Task) error
	Delete(ctx context.Context, id, ownerID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]entity.Task, error)
}

// IUserRepository - интерфейс для UserRepository
type IUserRepository interface {
	// Create возвращает entity.ErrUserAlreadyExists при конфликте email/username
	Create(ctx context.Context, user *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// IRefreshTokenRepository - интерфейс для RefreshTokenRepository
type IRefreshTokenRepository interface {
	Save(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// GetByHash возвращает только живой токен: не отозван и не истек
	GetByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)
	// Revoke отзывает живой токен, false - токен уже отозван или не найден
	Revoke(ctx context.Context, tokenHash string) (bool, error)
	RevokeAll(ctx context.Context, userID string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// IRevokedTokenRepository - denylist access токенов по jti
type IRevokedTokenRepository interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ITaskAuditRepository - интерфейс для TaskAuditRepository
type ITaskAuditRepository interface {
	Create(ctx context.Context, audit *entity.TaskAudit) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]entity.TaskAudit, error)
}
