package middleware

import (
	"context"
	"net/http"
	"strings"

	"kinotalks/internal/logger"
	"kinotalks/internal/token"

	"go.uber.org/zap"
)

// AuthCookieName — имя cookie с токеном. Cookie проверяется первой,
// заголовок Authorization — запасной вариант.
const AuthCookieName = "auth_token"

// Auth — аутентификация запроса. Работает fail-open: запрос без токена или
// с невалидным токеном идёт дальше анонимным, отказ в доступе — задача
// guard-ов на конкретных маршрутах. Никогда не отвечает 401 сама.
// Верификация чисто in-memory, без внешних вызовов.
func Auth(verifier token.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				// Контекст не трогаем: невалидный токен деградирует до анонима
				logger.WithCtx(r.Context()).Warn("Auth: невалидный токен, запрос продолжается анонимно",
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextUserEmail, claims.Subject)
			ctx = context.WithValue(ctx, ContextRole, claims.Role)
			ctx = context.WithValue(ctx, ContextAuthority, "ROLE_"+strings.ToUpper(claims.Role))

			logger.WithCtx(ctx).Debug("Auth: токен валиден",
				zap.String("subject", claims.Subject),
				zap.String("role", claims.Role),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie(AuthCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
