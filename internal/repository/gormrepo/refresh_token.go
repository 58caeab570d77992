package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
	"gorm.io/gorm"
)

type RefreshTokenRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *RefreshTokenRepository) Save(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	model := refreshTokenModel{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	var model refreshTokenModel
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND revoked = ? AND expires_at > ?", tokenHash, false, r.now()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	return &entity.RefreshToken{
		ID:        model.ID,
		UserID:    model.UserID,
		TokenHash: model.TokenHash,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		Revoked:   model.Revoked,
	}, nil
}

// Revoke - условный UPDATE, повторный отзыв возвращает false
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token_hash = ? AND revoked = ?", tokenHash, false).
		Update("revoked", true)
	if err := result.Error; err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return result.RowsAffected > 0, nil
}

func (r *RefreshTokenRepository) RevokeAll(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
	if err != nil {
		return fmt.Errorf("failed to revoke user refresh tokens: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR revoked = ?", r.now(), true).
		Delete(&refreshTokenModel{})
	if err := result.Error; err != nil {
		return 0, fmt.Errorf("failed to cleanup refresh tokens: %w", err)
	}
	return result.RowsAffected, nil
}
