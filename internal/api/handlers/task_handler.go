package handlers

import (
	"context"
	"net/http"

	"github.com/St1cky1/todo-service/internal/api/middleware"
	"github.com/St1cky1/todo-service/internal/api/respond"
	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/St1cky1/todo-service/internal/usecase"
	"github.com/go-chi/chi/v5"
)

// TaskHistory - журнал изменений задачи
type TaskHistory interface {
	GetTaskHistory(ctx context.Context, ownerID, taskID string) ([]entity.TaskAudit, error)
}

type TaskHandler struct {
	taskService usecase.ITaskService
	history     TaskHistory
}

func NewTaskHandler(taskService usecase.ITaskService, history TaskHistory) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		history:     history,
	}
}

// создаем новую задачу, владелец - текущий пользователь
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respond.FromError(w, r, entity.ErrUnauthorized)
		return
	}

	var req entity.CreateTaskRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respond.FromError(w, r, err)
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), ownerID, &req)
	if err != nil {
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respond.FromError(w, r, entity.ErrUnauthorized)
		return
	}

	tasks, err := h.taskService.ListTasks(r.Context(), ownerID)
	if err != nil {
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respond.FromError(w, r, entity.ErrUnauthorized)
		return
	}

	task, err := h.taskService.GetTask(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, task)
}

// UpdateTask - PATCH, принимаются только title, description, completed
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respond.FromError(w, r, entity.ErrUnauthorized)
		return
	}

	var req entity.UpdateTaskRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		respond.FromError(w, r, err)
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), ownerID, chi.URLParam(r, "id"), &req)
	if err != nil {
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respond.FromError(w, r, entity.ErrUnauthorized)
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		respond.FromError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) GetTaskHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respond.FromError(w, r, entity.ErrUnauthorized)
		return
	}

	history, err := h.history.GetTaskHistory(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, history)
}
