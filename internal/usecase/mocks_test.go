package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/St1cky1/todo-service/internal/repository"
)

// MockTaskRepository - мок для ITaskRepository
type MockTaskRepository struct {
	CreateFunc          func(ctx context.Context, task *entity.Task) error
	GetByIDAndOwnerFunc func(ctx context.Context, id, ownerID string) (*entity.Task, error)
	UpdateFunc          func(ctx context.Context, task *entity.Task) error
	DeleteFunc          func(ctx context.Context, id, ownerID string) error
	ListByOwnerFunc     func(ctx context.Context, ownerID string) ([]entity.Task, error)
}

var _ repository.ITaskRepository = (*MockTaskRepository)(nil)

func (m *MockTaskRepository) Create(ctx context.Context, task *entity.Task) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, task)
	}
	return nil
}

func (m *MockTaskRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*entity.Task, error) {
	if m.GetByIDAndOwnerFunc != nil {
		return m.GetByIDAndOwnerFunc(ctx, id, ownerID)
	}
	return nil, nil
}

func (m *MockTaskRepository) Update(ctx context.Context, task *entity.Task) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, task)
	}
	return nil
}

func (m *MockTaskRepository) Delete(ctx context.Context, id, ownerID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, ownerID)
	}
	return nil
}

func (m *MockTaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Task, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerID)
	}
	return nil, nil
}

// memTaskRepository - хранилище в памяти с тем же предикатом id + owner_id
type memTaskRepository struct {
	mu    sync.Mutex
	tasks map[string]entity.Task
}

var _ repository.ITaskRepository = (*memTaskRepository)(nil)

func newMemTaskRepository() *memTaskRepository {
	return &memTaskRepository{tasks: make(map[string]entity.Task)}
}

func (r *memTaskRepository) Create(_ context.Context, task *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = *task
	return nil
}

func (r *memTaskRepository) GetByIDAndOwner(_ context.Context, id, ownerID string) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, nil
	}
	return &task, nil
}

func (r *memTaskRepository) Update(_ context.Context, task *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[task.ID]
	if !ok || stored.OwnerID != task.OwnerID {
		return entity.ErrTaskNotFound
	}
	stored.Title = task.Title
	stored.Description = task.Description
	stored.Completed = task.Completed
	stored.UpdatedAt = task.UpdatedAt
	r.tasks[task.ID] = stored
	return nil
}

func (r *memTaskRepository) Delete(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[id]
	if !ok || stored.OwnerID != ownerID {
		return entity.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *memTaskRepository) ListByOwner(_ context.Context, ownerID string) ([]entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tasks := make([]entity.Task, 0)
	for _, t := range r.tasks {
		if t.OwnerID == ownerID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

// MockUserRepository - мок для IUserRepository
type MockUserRepository struct {
	CreateFunc     func(ctx context.Context, user *entity.User) error
	GetByEmailFunc func(ctx context.Context, email string) (*entity.User, error)
	GetByIDFunc    func(ctx context.Context, id string) (*entity.User, error)
}

var _ repository.IUserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

// MockRefreshTokenRepository - мок для IRefreshTokenRepository
type MockRefreshTokenRepository struct {
	SaveFunc           func(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetByHashFunc      func(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)
	RevokeFunc         func(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllFunc      func(ctx context.Context, userID string) error
	CleanupExpiredFunc func(ctx context.Context) (int64, error)
}

var _ repository.IRefreshTokenRepository = (*MockRefreshTokenRepository)(nil)

func (m *MockRefreshTokenRepository) Save(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, userID, tokenHash, expiresAt)
	}
	return nil
}

func (m *MockRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	if m.GetByHashFunc != nil {
		return m.GetByHashFunc(ctx, tokenHash)
	}
	return nil, nil
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, tokenHash)
	}
	return true, nil
}

func (m *MockRefreshTokenRepository) RevokeAll(ctx context.Context, userID string) error {
	if m.RevokeAllFunc != nil {
		return m.RevokeAllFunc(ctx, userID)
	}
	return nil
}

func (m *MockRefreshTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx)
	}
	return 0, nil
}

// MockAuditPublisher - мок для AuditPublisher
type MockAuditPublisher struct {
	mu       sync.Mutex
	messages []*entity.AuditMessage

	PublishAuditMessageFunc func(ctx context.Context, message *entity.AuditMessage) error
}

func (m *MockAuditPublisher) PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error {
	m.mu.Lock()
	m.messages = append(m.messages, message)
	m.mu.Unlock()
	if m.PublishAuditMessageFunc != nil {
		return m.PublishAuditMessageFunc(ctx, message)
	}
	return nil
}

func (m *MockAuditPublisher) Messages() []*entity.AuditMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.AuditMessage(nil), m.messages...)
}

// stepClock - каждый вызов на секунду позже предыдущего
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(time.Second)
		return now
	}
}
