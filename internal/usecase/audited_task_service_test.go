package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/St1cky1/todo-service/internal/entity"
)

func TestAuditedCreatePublishesNewValues(t *testing.T) {
	ctx := context.Background()
	publisher := &MockAuditPublisher{}
	service := NewAuditedTaskService(newTestTaskService(newMemTaskRepository()), publisher)

	task, err := service.CreateTask(ctx, "alice", &entity.CreateTaskRequest{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	service.Wait()

	msgs := publisher.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 audit message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.Action != entity.ActionCreate || msg.EntityID != task.ID || msg.UserID != "alice" {
		t.Errorf("Unexpected message: %+v", msg)
	}
	if msg.NewValues["title"] != "Buy milk" || msg.NewValues["owner_id"] != "alice" {
		t.Errorf("Unexpected new values: %v", msg.NewValues)
	}
	if msg.OldValues != nil {
		t.Errorf("Expected no old values on create, got %v", msg.OldValues)
	}
}

func TestAuditedUpdatePublishesChanges(t *testing.T) {
	ctx := context.Background()
	publisher := &MockAuditPublisher{}
	service := NewAuditedTaskService(newTestTaskService(newMemTaskRepository()), publisher)

	task, _ := service.CreateTask(ctx, "alice", &entity.CreateTaskRequest{Title: "Buy milk"})
	_, err := service.UpdateTask(ctx, "alice", task.ID, &entity.UpdateTaskRequest{Completed: boolPtr(true)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	service.Wait()

	msgs := publisher.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 audit messages, got %d", len(msgs))
	}
	var update *entity.AuditMessage
	for _, m := range msgs {
		if m.Action == entity.ActionUpdate {
			update = m
		}
	}
	if update == nil {
		t.Fatal("Expected an update message")
	}
	if _, ok := update.Changes["completed"]; !ok {
		t.Errorf("Expected completed in changes, got %v", update.Changes)
	}
	if _, ok := update.Changes["title"]; ok {
		t.Errorf("Expected unchanged title to be absent from changes, got %v", update.Changes)
	}
}

func TestAuditedFailuresAreNotPublished(t *testing.T) {
	ctx := context.Background()
	publisher := &MockAuditPublisher{}
	service := NewAuditedTaskService(newTestTaskService(newMemTaskRepository()), publisher)

	if _, err := service.CreateTask(ctx, "alice", &entity.CreateTaskRequest{Title: ""}); !errors.Is(err, entity.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if err := service.DeleteTask(ctx, "alice", "missing"); !errors.Is(err, entity.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
	if _, err := service.GetTask(ctx, "alice", "missing"); !errors.Is(err, entity.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
	service.Wait()

	if n := len(publisher.Messages()); n != 0 {
		t.Errorf("Expected no audit messages, got %d", n)
	}
}

func TestAuditedPublishErrorDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	publisher := &MockAuditPublisher{
		PublishAuditMessageFunc: func(ctx context.Context, message *entity.AuditMessage) error {
			return errors.New("broker down")
		},
	}
	service := NewAuditedTaskService(newTestTaskService(newMemTaskRepository()), publisher)

	task, _ := service.CreateTask(ctx, "alice", &entity.CreateTaskRequest{Title: "t"})
	if err := service.DeleteTask(ctx, "alice", task.ID); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	service.Wait()

	msgs := publisher.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 publish attempts, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.Action == entity.ActionDelete && m.OldValues["title"] != "t" {
			t.Errorf("Expected delete message to carry old values, got %v", m.OldValues)
		}
	}
}

func TestAuditedUpdateReadsStoreOnceAndSurfacesErrors(t *testing.T) {
	ctx := context.Background()
	stored := entity.Task{ID: "t1", Title: "Buy milk", OwnerID: "alice", CreatedAt: testStart, UpdatedAt: testStart}
	storeErr := errors.New("connection reset")

	reads := 0
	failReads := false
	repo := &MockTaskRepository{
		GetByIDAndOwnerFunc: func(ctx context.Context, id, ownerID string) (*entity.Task, error) {
			reads++
			if failReads {
				return nil, storeErr
			}
			copied := stored
			return &copied, nil
		},
	}
	publisher := &MockAuditPublisher{}
	service := NewAuditedTaskService(NewTaskService(repo, WithClock(stepClock(testStart))), publisher)

	if _, err := service.UpdateTask(ctx, "alice", "t1", &entity.UpdateTaskRequest{Title: strPtr("Buy bread")}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if reads != 1 {
		t.Errorf("Expected 1 store read per update, got %d", reads)
	}

	failReads = true
	if _, err := service.UpdateTask(ctx, "alice", "t1", &entity.UpdateTaskRequest{}); !errors.Is(err, storeErr) {
		t.Errorf("Expected store error, got %v", err)
	}
	if err := service.DeleteTask(ctx, "alice", "t1"); !errors.Is(err, storeErr) {
		t.Errorf("Expected store error on delete, got %v", err)
	}
	service.Wait()

	msgs := publisher.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 audit message, got %d", len(msgs))
	}
	if msgs[0].OldValues["title"] != "Buy milk" || msgs[0].NewValues["title"] != "Buy bread" {
		t.Errorf("Unexpected audit values: old %v, new %v", msgs[0].OldValues, msgs[0].NewValues)
	}
}

func TestTaskChangesDescription(t *testing.T) {
	oldTask := &entity.Task{Title: "t", Description: strPtr("a")}
	newTask := &entity.Task{Title: "t"}

	changes := taskChanges(oldTask, newTask)
	if _, ok := changes["description"]; !ok {
		t.Errorf("Expected cleared description to be a change, got %v", changes)
	}

	same := taskChanges(&entity.Task{Description: strPtr("a")}, &entity.Task{Description: strPtr("a")})
	if len(same) != 0 {
		t.Errorf("Expected no changes, got %v", same)
	}
}
