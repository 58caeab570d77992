package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = "revoked_token:"

// RevokedTokenRepository - denylist в Redis, ключ живет до истечения токена
type RevokedTokenRepository struct {
	client *redis.Client
}

func NewRevokedTokenRepository(client *redis.Client) *RevokedTokenRepository {
	return &RevokedTokenRepository{
		client: client,
	}
}

func (r *RevokedTokenRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// токен уже истек, отзывать нечего
		return nil
	}
	if err := r.client.Set(ctx, revokedTokenPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.client.Get(ctx, revokedTokenPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return true, nil
}

// MemoryRevokedTokenRepository - denylist одного процесса, когда Redis не настроен
type MemoryRevokedTokenRepository struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevokedTokenRepository() *MemoryRevokedTokenRepository {
	return &MemoryRevokedTokenRepository{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryRevokedTokenRepository) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.expires {
		if !now.Before(exp) {
			delete(r.expires, id)
		}
	}
	r.expires[tokenID] = now.Add(ttl)
	return nil
}

func (r *MemoryRevokedTokenRepository) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.expires[tokenID]
	return ok && r.now().Before(exp), nil
}
