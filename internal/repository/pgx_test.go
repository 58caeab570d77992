package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB - DBTX без базы, запоминает последний запрос
type fakeDB struct {
	calls   int
	lastSQL string
	lastArg []any

	execTag pgconn.CommandTag
	execErr error
	rowErr  error
}

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error { return r.err }

func (db *fakeDB) record(sql string, args []any) {
	db.calls++
	db.lastSQL = sql
	db.lastArg = args
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.record(sql, args)
	return db.execTag, db.execErr
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.record(sql, args)
	return nil, errors.New("query not supported")
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.record(sql, args)
	return fakeRow{err: db.rowErr}
}

func TestIsUUID(t *testing.T) {
	if !isUUID(uuid.NewString()) {
		t.Error("Expected generated uuid to be accepted")
	}
	for _, id := range []string{"", "42", "not-a-uuid", "../tasks"} {
		if isUUID(id) {
			t.Errorf("Expected %q to be rejected", id)
		}
	}
}

func TestTaskRepositoryNonUUIDIsNotFound(t *testing.T) {
	db := &fakeDB{}
	repo := NewTaskRepository(db)
	ctx := context.Background()

	task, err := repo.GetByIDAndOwner(ctx, "42", "alice")
	if err != nil || task != nil {
		t.Errorf("Expected nil, nil, got %+v, %v", task, err)
	}
	if err := repo.Update(ctx, &entity.Task{ID: "42", OwnerID: "alice"}); !errors.Is(err, entity.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound on update, got %v", err)
	}
	if err := repo.Delete(ctx, "42", "alice"); !errors.Is(err, entity.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound on delete, got %v", err)
	}
	if db.calls != 0 {
		t.Errorf("Expected no queries for malformed ids, got %d", db.calls)
	}
}

func TestTaskRepositoryOwnerPredicate(t *testing.T) {
	db := &fakeDB{rowErr: pgx.ErrNoRows}
	repo := NewTaskRepository(db)
	id := uuid.NewString()

	task, err := repo.GetByIDAndOwner(context.Background(), id, "bob")
	if err != nil || task != nil {
		t.Fatalf("Expected nil, nil for no rows, got %+v, %v", task, err)
	}
	if !strings.Contains(db.lastSQL, "id = $1 AND owner_id = $2") {
		t.Errorf("Expected owner predicate in query, got %s", db.lastSQL)
	}
	if len(db.lastArg) != 2 || db.lastArg[0] != id || db.lastArg[1] != "bob" {
		t.Errorf("Unexpected args: %v", db.lastArg)
	}
}

func TestTaskRepositoryZeroRowsIsNotFound(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := NewTaskRepository(db)
	ctx := context.Background()
	task := &entity.Task{ID: uuid.NewString(), Title: "t", OwnerID: "bob", UpdatedAt: time.Now()}

	if err := repo.Update(ctx, task); !errors.Is(err, entity.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
	if !strings.Contains(db.lastSQL, "owner_id = $6") {
		t.Errorf("Expected owner predicate in update, got %s", db.lastSQL)
	}

	db.execTag = pgconn.NewCommandTag("DELETE 0")
	if err := repo.Delete(ctx, task.ID, "bob"); !errors.Is(err, entity.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}

	db.execTag = pgconn.NewCommandTag("DELETE 1")
	if err := repo.Delete(ctx, task.ID, "bob"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestTaskRepositoryStoreErrorIsWrapped(t *testing.T) {
	storeErr := errors.New("connection reset")
	repo := NewTaskRepository(&fakeDB{rowErr: storeErr})

	_, err := repo.GetByIDAndOwner(context.Background(), uuid.NewString(), "bob")
	if !errors.Is(err, storeErr) || errors.Is(err, entity.ErrTaskNotFound) {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
}

func TestUserRepositoryUniqueViolation(t *testing.T) {
	db := &fakeDB{execErr: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}}
	repo := NewUserRepository(db)
	user := &entity.User{ID: uuid.NewString(), Email: "a@example.com", Username: "alice"}

	if err := repo.Create(context.Background(), user); !errors.Is(err, entity.ErrUserAlreadyExists) {
		t.Errorf("Expected ErrUserAlreadyExists, got %v", err)
	}

	db.execErr = &pgconn.PgError{Code: "23503"}
	err := repo.Create(context.Background(), user)
	if errors.Is(err, entity.ErrUserAlreadyExists) {
		t.Error("Expected other constraint errors not to map to ErrUserAlreadyExists")
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Errorf("Expected original PgError to be wrapped, got %v", err)
	}
}

func TestUserRepositoryNoRows(t *testing.T) {
	repo := NewUserRepository(&fakeDB{rowErr: pgx.ErrNoRows})

	user, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if err != nil || user != nil {
		t.Errorf("Expected nil, nil, got %+v, %v", user, err)
	}
}

func TestRefreshTokenRepositoryRevokeOnce(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()

	ok, err := repo.Revoke(ctx, "hash")
	if err != nil || !ok {
		t.Fatalf("Expected true, nil, got %v, %v", ok, err)
	}
	if !strings.Contains(db.lastSQL, "revoked = false") {
		t.Errorf("Expected revoke to be conditional, got %s", db.lastSQL)
	}

	db.execTag = pgconn.NewCommandTag("UPDATE 0")
	ok, err = repo.Revoke(ctx, "hash")
	if err != nil || ok {
		t.Errorf("Expected false, nil for an already revoked token, got %v, %v", ok, err)
	}
}
