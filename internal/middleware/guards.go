package middleware

import (
	"net/http"

	helpers "kinotalks/internal/utils/helpers"
)

// Guard-ы — отдельный от аутентификации слой: Auth пропускает всех,
// а здесь решается, кому на маршрут можно.

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserEmailFromContext(r.Context()); !ok {
			helpers.Error(w, http.StatusUnauthorized, "Требуется аутентификация")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAuthority(authority string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have, ok := AuthorityFromContext(r.Context())
			if !ok || have != authority {
				helpers.Error(w, http.StatusForbidden, "Доступ запрещён")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
