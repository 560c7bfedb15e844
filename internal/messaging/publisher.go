package messaging

import (
	"context"
	"encoding/json"
	"time"

	"kinotalks/internal/logger"
	"kinotalks/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher сериализует доменные события и отдаёт их в exchange.
// Fire-and-forget: за durability отвечает брокер, издатель ничего не ждёт.
type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := DeclareTopology(ch); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) PublishUserRegistered(ctx context.Context, user *models.User) error {
	ev := models.UserRegisteredEvent{
		Nickname:  user.Nickname,
		Email:     user.Email,
		Timestamp: time.Now().UTC(),
	}
	return p.publish(ctx, UserRegisteredKey, ev)
}

func (p *Publisher) PublishPasswordReset(ctx context.Context, email, resetLink string) error {
	ev := models.PasswordResetEvent{
		RecipientEmail: email,
		ResetLink:      resetLink,
	}
	return p.publish(ctx, UserResetKey, ev)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, UserExchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		logger.Log.Error("Не удалось опубликовать событие",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Debug("Событие опубликовано", zap.String("routing_key", routingKey))
	return nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
