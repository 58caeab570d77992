package handlers

import (
	"context"
	"net/http"

	"github.com/St1cky1/todo-service/internal/api/middleware"
	"github.com/St1cky1/todo-service/internal/api/respond"
	"github.com/St1cky1/todo-service/internal/entity"
)

// AuthService - операции Identity Provider, доступные по HTTP
type AuthService interface {
	Register(ctx context.Context, req *entity.RegisterRequest) (*entity.LoginResponse, error)
	Login(ctx context.Context, req *entity.LoginRequest) (*entity.LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*entity.RefreshTokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

type UserService interface {
	GetUser(ctx context.Context, userID string) (*entity.User, error)
}

type AuthHandler struct {
	authService AuthService
	userService UserService
}

func NewAuthHandler(authService AuthService, userService UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entity.RegisterRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respond.FromError(w, r, err)
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entity.LoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respond.FromError(w, r, err)
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req entity.RefreshTokenRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respond.FromError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, "validation failed: refresh_token must not be empty")
		return
	}

	resp, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, resp)
}

// Logout - маршрут под middleware.Auth, токен уже проверен
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respond.FromError(w, r, entity.ErrUnauthorized)
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		respond.FromError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, user)
}
