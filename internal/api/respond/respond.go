// Package respond пишет JSON ответы и переводит доменные ошибки в HTTP статусы.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/St1cky1/todo-service/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
)

type errorBody struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.WithError(err).Warn("failed to encode response")
	}
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// FromError - единая точка маппинга ошибок usecase на статусы.
// Неизвестные ошибки логируются и не отдаются клиенту.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, entity.ErrInvalidCredentials.Error())
	case errors.Is(err, entity.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, entity.ErrUnauthorized.Error())
	case errors.Is(err, entity.ErrTaskNotFound):
		Error(w, http.StatusNotFound, entity.ErrTaskNotFound.Error())
	case errors.Is(err, entity.ErrUserNotFound):
		Error(w, http.StatusNotFound, entity.ErrUserNotFound.Error())
	case errors.Is(err, entity.ErrUserAlreadyExists):
		Error(w, http.StatusConflict, entity.ErrUserAlreadyExists.Error())
	default:
		logging.Logger.WithError(err).
			WithField("request_id", middleware.GetReqID(r.Context())).
			WithField("path", r.URL.Path).
			Error("❌ Internal server error")
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}
