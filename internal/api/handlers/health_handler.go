package handlers

import (
	"net/http"
	"time"

	"github.com/St1cky1/todo-service/internal/api/respond"
)

type HealthHandler struct {
	startedAt time.Time
	now       func() time.Time
}

func NewHealthHandler(startedAt time.Time) *HealthHandler {
	return &HealthHandler{
		startedAt: startedAt,
		now:       time.Now,
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"` // seconds
}

// Check - liveness, зависимости проверяет /healthz
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	respond.JSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.startedAt).Seconds(),
	})
}
