package api

import (
	"net/http"
	"time"

	"github.com/St1cky1/todo-service/internal/api/handlers"
	apimw "github.com/St1cky1/todo-service/internal/api/middleware"
	"github.com/St1cky1/todo-service/internal/metrics"
	"github.com/St1cky1/todo-service/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AuthService - Identity Provider для handlers и middleware.Auth
type AuthService interface {
	handlers.AuthService
	apimw.Authenticator
}

type Deps struct {
	Tasks   usecase.ITaskService
	History handlers.TaskHistory
	Auth    AuthService
	Users   handlers.UserService

	Metrics        *metrics.Metrics // nil - без метрик
	MetricsHandler http.Handler     // /metrics
	Healthz        http.Handler     // /healthz через grpc-gateway
	StartedAt      time.Time
}

func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimw.RequestLogger)
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(apimw.Metrics(deps.Metrics))
	}

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	if deps.Healthz != nil {
		r.Method(http.MethodGet, "/healthz", deps.Healthz)
	}

	routes := registerRoutes(deps)
	routes(r)
	// клиент ходит на .../api
	r.Route("/api", routes)

	return r
}

func registerRoutes(deps Deps) func(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(deps.StartedAt)
	taskHandler := handlers.NewTaskHandler(deps.Tasks, deps.History)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Users)
	requireAuth := apimw.Auth(deps.Auth)

	return func(r chi.Router) {
		r.Get("/health", healthHandler.Check)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(requireAuth).Post("/logout", authHandler.Logout)
			r.With(requireAuth).Get("/me", authHandler.Me)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTask)
				r.Patch("/", taskHandler.UpdateTask)
				r.Delete("/", taskHandler.DeleteTask)
				r.Get("/history", taskHandler.GetTaskHistory)
			})
		})
	}
}
