package app

import (
	"strconv"
	"time"

	"kinotalks/internal/config"
	"kinotalks/internal/db"
	"kinotalks/internal/handlers"
	"kinotalks/internal/messaging"
	"kinotalks/internal/repository"
	"kinotalks/internal/routes"
	"kinotalks/internal/services"
	"kinotalks/internal/token"

	"github.com/gorilla/mux"
)

func InitApp(cfg *config.Config) (*mux.Router, error) {
	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, err
	}

	amqpConn, err := messaging.Connect(cfg.AmqpURL)
	if err != nil {
		return nil, err
	}
	publisher, err := messaging.NewPublisher(amqpConn)
	if err != nil {
		return nil, err
	}

	tokenTTL, err := time.ParseDuration(cfg.AuthTokenTTL)
	if err != nil {
		tokenTTL = 24 * time.Hour
	}
	codec := token.NewCodec(cfg.JWTSecret, tokenTTL)

	resetTTLMin, err := strconv.Atoi(cfg.PasswordResetTTLMin)
	if err != nil || resetTTLMin <= 0 {
		resetTTLMin = 30
	}

	// Репозитории
	userRepo := repository.NewUserRepository(conn)
	resetRepo := repository.NewPasswordResetRepository(conn)

	// Сервисы
	authService := services.NewAuthService(userRepo, publisher, codec)
	passwordService := services.NewPasswordService(
		resetRepo,
		userRepo,
		publisher,
		cfg.FrontendURL,
		time.Duration(resetTTLMin)*time.Minute,
	)

	// Хендлеры
	authHandler := handlers.NewAuthHandler(authService, tokenTTL, cfg.Env == "prod")
	passwordHandler := handlers.NewPasswordHandler(passwordService)

	// Маршруты
	router := mux.NewRouter()
	routes.InitRoutes(router, codec, authHandler, passwordHandler)

	return router, nil
}
