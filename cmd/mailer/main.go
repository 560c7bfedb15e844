package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"kinotalks/internal/config"
	"kinotalks/internal/logger"
	"kinotalks/internal/messaging"
	"kinotalks/internal/services"

	"go.uber.org/zap"
)

const mailWorkers = 3

// Почтовый воркер: читает user.exchange и рассылает письма.
// Отвергнутые сообщения брокер перекладывает в DLQ — см. messaging.DeclareTopology.
func main() {
	cfg, err := config.LoadConfig()
	logger.InitLogger()
	defer logger.Log.Sync()

	if err != nil {
		logger.Log.Fatal("Ошибка загрузки конфига", zap.Error(err))
	}

	conn, err := messaging.Connect(cfg.AmqpURL)
	if err != nil {
		logger.Log.Fatal("Не удалось подключиться к брокеру", zap.Error(err))
	}
	defer conn.Close()

	sender := services.NewEmailSender(cfg)
	notifications := services.NewNotificationConsumer(sender)

	consumer := messaging.NewConsumer(conn, mailWorkers)
	consumer.Handle(messaging.UserRegisteredQueue, notifications.HandleUserRegistered)
	consumer.Handle(messaging.UserResetQueue, notifications.HandlePasswordReset)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("Почтовый воркер запущен")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Fatal("Потребитель завершился с ошибкой", zap.Error(err))
	}
	logger.Log.Info("Почтовый воркер остановлен")
}
