package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/St1cky1/todo-service/internal/entity"
	"github.com/St1cky1/todo-service/internal/infrastructure/auth"
	"github.com/St1cky1/todo-service/internal/repository"
	"github.com/google/uuid"
)

type AuthService struct {
	userRepo         repository.IUserRepository
	refreshTokenRepo repository.IRefreshTokenRepository
	revokedTokenRepo repository.IRevokedTokenRepository
	passwordManager  *auth.PasswordManager
	jwtManager       *auth.JWTManager
	now              func() time.Time
}

func NewAuthService(
	userRepo repository.IUserRepository,
	refreshTokenRepo repository.IRefreshTokenRepository,
	revokedTokenRepo repository.IRevokedTokenRepository,
	passwordManager *auth.PasswordManager,
	jwtManager *auth.JWTManager,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		revokedTokenRepo: revokedTokenRepo,
		passwordManager:  passwordManager,
		jwtManager:       jwtManager,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Register регистрирует нового пользователя
func (s *AuthService) Register(ctx context.Context, req *entity.RegisterRequest) (*entity.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// Проверяем, что пользователь с таким email не существует
	existingUser, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, entity.ErrUserAlreadyExists
	}

	// Хешируем пароль
	passwordHash, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &entity.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// username тоже уникален, конфликт приходит из хранилища
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, entity.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueTokens(ctx, user)
}

// Login логинит пользователя
func (s *AuthService) Login(ctx context.Context, req *entity.LoginRequest) (*entity.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// Ищем пользователя по email
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	// неизвестный email и неверный пароль неотличимы
	if user == nil || !s.passwordManager.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, entity.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// RefreshToken ротирует пару токенов, старый refresh token отзывается
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenStr string) (*entity.RefreshTokenResponse, error) {
	// Проверяем refresh token
	claims, err := s.jwtManager.ValidateRefreshToken(refreshTokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUnauthorized, err)
	}

	// Проверяем, есть ли этот токен в БД
	refreshTokenHash := hashToken(refreshTokenStr)
	storedToken, err := s.refreshTokenRepo.GetByHash(ctx, refreshTokenHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if storedToken == nil || storedToken.UserID != claims.UserID {
		return nil, fmt.Errorf("%w: refresh token not found or expired", entity.ErrUnauthorized)
	}

	// Откатываем старый refresh token, при гонке новую пару получает только один запрос
	revoked, err := s.refreshTokenRepo.Revoke(ctx, refreshTokenHash)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}
	if !revoked {
		return nil, fmt.Errorf("%w: refresh token already used", entity.ErrUnauthorized)
	}

	pair, err := s.issueTokens(ctx, &entity.User{ID: claims.UserID, Email: claims.Email})
	if err != nil {
		return nil, err
	}

	return &entity.RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Logout отзывает access token до его истечения и все refresh токены пользователя
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrUnauthorized, err)
	}

	if claims.TokenID != "" {
		ttl := claims.ExpiresAt.Sub(s.now())
		if err := s.revokedTokenRepo.Revoke(ctx, claims.TokenID, ttl); err != nil {
			return fmt.Errorf("failed to revoke access token: %w", err)
		}
	}

	if err := s.refreshTokenRepo.RevokeAll(ctx, claims.UserID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// Authenticate превращает bearer токен в id пользователя
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (string, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrUnauthorized, err)
	}

	if claims.TokenID != "" {
		revoked, err := s.revokedTokenRepo.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return "", fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return "", fmt.Errorf("%w: token revoked", entity.ErrUnauthorized)
		}
	}

	return claims.UserID, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *entity.User) (*entity.LoginResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	// Сохраняем хеш refresh token в БД
	expiresAt := s.now().Add(s.jwtManager.RefreshExpiry())
	if err := s.refreshTokenRepo.Save(ctx, user.ID, hashToken(refreshToken), expiresAt); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &entity.LoginResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.AccessExpiry().Seconds()),
	}, nil
}

// hashToken генерирует хеш токена для хранения в БД
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
