package services

import (
	"context"
	"encoding/json"
	"errors"

	"kinotalks/internal/logger"
	"kinotalks/internal/messaging"
	"kinotalks/internal/models"

	"go.uber.org/zap"
)

// NotificationSender — отправка писем из событий. Реализуется EmailSender,
// в тестах подменяется заглушкой.
type NotificationSender interface {
	SendWelcome(to, name string) error
	SendPasswordReset(to, resetLink string) error
}

// NotificationConsumer превращает события очередей в письма и принимает
// решение по каждому сообщению: Accept либо RejectDiscard (в DLQ).
// RejectRequeue не используется: невосстановимая ошибка не должна
// крутиться по очереди бесконечно.
type NotificationConsumer struct {
	sender NotificationSender
}

func NewNotificationConsumer(sender NotificationSender) *NotificationConsumer {
	return &NotificationConsumer{sender: sender}
}

// HandleUserRegistered обрабатывает событие регистрации. Повторная доставка
// того же события даёт повторное письмо — допустимо при at-least-once.
func (c *NotificationConsumer) HandleUserRegistered(ctx context.Context, body []byte) messaging.Outcome {
	var ev models.UserRegisteredEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		logger.Log.Error("Битое событие UserRegistered", zap.Error(err))
		return messaging.RejectDiscard
	}

	if err := c.sender.SendWelcome(ev.Email, ev.Nickname); err != nil {
		if errors.Is(err, ErrDelivery) {
			logger.Log.Error("Транспорт отверг приветственное письмо",
				zap.String("recipient", ev.Email),
				zap.Error(err),
			)
		} else {
			logger.Log.Error("Неожиданная ошибка при отправке приветственного письма",
				zap.String("recipient", ev.Email),
				zap.Error(err),
			)
		}
		return messaging.RejectDiscard
	}

	logger.Log.Info("Приветственное письмо отправлено", zap.String("recipient", ev.Email))
	return messaging.Accept
}

// HandlePasswordReset обрабатывает запрос на восстановление пароля.
func (c *NotificationConsumer) HandlePasswordReset(ctx context.Context, body []byte) messaging.Outcome {
	var ev models.PasswordResetEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		logger.Log.Error("Битое событие PasswordResetRequested", zap.Error(err))
		return messaging.RejectDiscard
	}

	if err := c.sender.SendPasswordReset(ev.RecipientEmail, ev.ResetLink); err != nil {
		if errors.Is(err, ErrDelivery) {
			logger.Log.Error("Транспорт отверг письмо о сбросе пароля",
				zap.String("recipient", ev.RecipientEmail),
				zap.Error(err),
			)
		} else {
			logger.Log.Error("Неожиданная ошибка при отправке письма о сбросе пароля",
				zap.String("recipient", ev.RecipientEmail),
				zap.Error(err),
			)
		}
		return messaging.RejectDiscard
	}

	logger.Log.Info("Письмо о сбросе пароля отправлено", zap.String("recipient", ev.RecipientEmail))
	return messaging.Accept
}
