// Package gormrepo - реализация хранилищ на gorm для локального запуска на SQLite.
package gormrepo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type userModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	Username     string `gorm:"size:50;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type taskModel struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Title       string    `gorm:"size:100;not null"`
	Description *string   `gorm:"size:500"`
	Completed   bool      `gorm:"not null;default:false"`
	OwnerID     string    `gorm:"size:36;not null;index:idx_tasks_owner_created,priority:1"`
	CreatedAt   time.Time `gorm:"index:idx_tasks_owner_created,priority:2,sort:desc"`
	UpdatedAt   time.Time
}

func (taskModel) TableName() string { return "tasks" }

type refreshTokenModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:36;not null;index"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
	Revoked   bool `gorm:"not null;default:false"`
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

type taskAuditModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"size:36;not null"`
	Action     string `gorm:"size:20;not null"`
	EntityType string `gorm:"size:50;not null;index:idx_task_audit_entity,priority:1"`
	EntityID   string `gorm:"size:36;not null;index:idx_task_audit_entity,priority:2"`
	OldValues  *string
	NewValues  *string
	Changes    *string
	ChangedAt  time.Time `gorm:"not null"`
}

func (taskAuditModel) TableName() string { return "task_audit" }

// Open открывает SQLite и прогоняет AutoMigrate
func Open(path string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite сериализует запись, а :memory: живет в пределах одного соединения
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userModel{}, &taskModel{}, &refreshTokenModel{}, &taskAuditModel{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toTask(m *taskModel) entity.Task {
	return entity.Task{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Completed:   m.Completed,
		OwnerID:     m.OwnerID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toUser(m *userModel) *entity.User {
	return &entity.User{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
