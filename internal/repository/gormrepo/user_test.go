package gormrepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/google/uuid"
)

func newUser(email, username string) *entity.User {
	now := time.Now().UTC()
	return &entity.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	user := newUser("alice@example.com", "alice")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	if err != nil || byEmail == nil || byEmail.ID != user.ID {
		t.Fatalf("GetByEmail() = %+v, %v", byEmail, err)
	}

	byID, err := repo.GetByID(ctx, user.ID)
	if err != nil || byID == nil || byID.Username != "alice" {
		t.Fatalf("GetByID() = %+v, %v", byID, err)
	}

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown email, got %+v, %v", missing, err)
	}
}

func TestUserRepository_Duplicate(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, newUser("alice@example.com", "alice")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := repo.Create(ctx, newUser("alice@example.com", "alice2"))
	if !errors.Is(err, entity.ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists for duplicate email, got %v", err)
	}

	err = repo.Create(ctx, newUser("other@example.com", "alice"))
	if !errors.Is(err, entity.ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists for duplicate username, got %v", err)
	}
}

func TestRefreshTokenRepository_Lifecycle(t *testing.T) {
	repo := NewRefreshTokenRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, "u1", "hash-live", time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, "u1", "hash-expired", time.Now().UTC().Add(-time.Hour)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	token, err := repo.GetByHash(ctx, "hash-live")
	if err != nil || token == nil || token.UserID != "u1" {
		t.Fatalf("GetByHash() = %+v, %v", token, err)
	}

	expired, err := repo.GetByHash(ctx, "hash-expired")
	if err != nil || expired != nil {
		t.Errorf("expected expired token to be hidden, got %+v, %v", expired, err)
	}

	ok, err := repo.Revoke(ctx, "hash-live")
	if err != nil || !ok {
		t.Fatalf("Revoke() = %v, %v", ok, err)
	}
	ok, err = repo.Revoke(ctx, "hash-live")
	if err != nil || ok {
		t.Errorf("expected second Revoke() to report false, got %v, %v", ok, err)
	}
	revoked, _ := repo.GetByHash(ctx, "hash-live")
	if revoked != nil {
		t.Error("expected revoked token to be hidden")
	}

	removed, err := repo.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 tokens removed, got %d", removed)
	}
}

func TestRefreshTokenRepository_RevokeOnce(t *testing.T) {
	repo := NewRefreshTokenRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, "u1", "hash-race", time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Revoke(ctx, "hash-race")
			if err != nil {
				t.Errorf("Revoke() error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one successful Revoke(), got %d", wins)
	}
}

func TestRefreshTokenRepository_UsesUTC(t *testing.T) {
	repo := NewRefreshTokenRepository(setupTestDB(t))

	if loc := repo.now().Location(); loc != time.UTC {
		t.Errorf("expected UTC clock, got %v", loc)
	}
}

func TestTaskAuditRepository_CreateAndList(t *testing.T) {
	repo := NewTaskAuditRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, action := range []entity.ActionType{entity.ActionCreate, entity.ActionUpdate} {
		audit := &entity.TaskAudit{
			UserID:     "u1",
			Action:     action,
			EntityType: entity.AuditEntityTask,
			EntityID:   "task-1",
			ChangedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, audit); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if audit.ID == 0 {
			t.Error("expected id to be assigned")
		}
	}

	audits, err := repo.ListByEntity(ctx, entity.AuditEntityTask, "task-1")
	if err != nil {
		t.Fatalf("ListByEntity() error = %v", err)
	}
	if len(audits) != 2 || audits[0].Action != entity.ActionUpdate {
		t.Errorf("expected newest first, got %+v", audits)
	}
}
