package worker

import (
	"context"
	"time"

	"github.com/St1cky1/todo-service/internal/logging"
	"github.com/St1cky1/todo-service/internal/repository"
)

// TokenCleanupWorker периодически удаляет истекшие и отозванные refresh токены
type TokenCleanupWorker struct {
	repo     repository.IRefreshTokenRepository
	interval time.Duration
}

func NewTokenCleanupWorker(repo repository.IRefreshTokenRepository, interval time.Duration) *TokenCleanupWorker {
	return &TokenCleanupWorker{
		repo:     repo,
		interval: interval,
	}
}

func (w *TokenCleanupWorker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *TokenCleanupWorker) cleanup(ctx context.Context) {
	removed, err := w.repo.CleanupExpired(ctx)
	if err != nil {
		logging.Logger.WithError(err).Error("❌ Ошибка очистки refresh токенов")
		return
	}
	if removed > 0 {
		logging.Logger.WithField("removed", removed).Info("Очищены refresh токены")
	}
}
