package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/St1cky1/todo-service/internal/api/respond"
	"github.com/St1cky1/todo-service/internal/entity"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	tokenKey  contextKey = "access_token"
)

// Authenticator - граница с Identity Provider: токен -> id пользователя
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

// Auth пропускает запрос дальше только с валидным Bearer токеном
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r)
			if token == "" {
				respond.Error(w, http.StatusUnauthorized, entity.ErrUnauthorized.Error())
				return
			}

			userID, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				respond.FromError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ExtractBearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// UserIDFromContext - id владельца, положенный Auth
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
