package auth

import (
	"errors"
	"fmt"

	"github.com/St1cky1/todo-service/internal/entity"
	"golang.org/x/crypto/bcrypt"
)

// PasswordManager - bcrypt хеши паролей пользователей
type PasswordManager struct {
	cost int
}

func NewPasswordManager() *PasswordManager {
	return NewPasswordManagerWithCost(bcrypt.DefaultCost)
}

// NewPasswordManagerWithCost - cost вне [MinCost, MaxCost] прижимается к границе
func NewPasswordManagerWithCost(cost int) *PasswordManager {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordManager{cost: cost}
}

// HashPassword - bcrypt режет вход на 72 байтах, длиннее отдаем как ошибку валидации
func (m *PasswordManager) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password: must be at most 72 bytes", entity.ErrValidation)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (m *PasswordManager) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

