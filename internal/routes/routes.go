package routes

import (
	"kinotalks/internal/handlers"
	"kinotalks/internal/middleware"
	"kinotalks/internal/token"

	"github.com/gorilla/mux"
)

func InitRoutes(
	router *mux.Router,
	verifier token.Verifier,
	authHandler *handlers.AuthHandler,
	passwordHandler *handlers.PasswordHandler,
) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logging)
	// Аутентификация fail-open: ставит principal в контекст, никого не режет
	router.Use(middleware.Auth(verifier))

	auth := router.PathPrefix("/auth").Subrouter()

	// --- Публичные маршруты ---
	auth.HandleFunc("/register", authHandler.Register).Methods("POST")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")
	auth.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	auth.HandleFunc("/forgot-password", passwordHandler.Forgot).Methods("POST")
	auth.HandleFunc("/reset-password", passwordHandler.Reset).Methods("POST")

	// --- Защищённые (guard-ы, не аутентификатор) ---
	protected := auth.PathPrefix("").Subrouter()
	protected.Use(middleware.RequireAuth)
	protected.HandleFunc("/me", authHandler.Me).Methods("GET")

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAuthority("ROLE_ADMIN"))
	admin.HandleFunc("/users", authHandler.GetUsers).Methods("GET")
}
