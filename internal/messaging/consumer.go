package messaging

import (
	"context"

	"kinotalks/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Outcome — явное решение потребителя по сообщению. Ядовитое сообщение
// обязано получить терминальный исход (RejectDiscard → DLQ), иначе при
// дефолтных настройках брокер будет перекладывать его бесконечно.
type Outcome int

const (
	Accept Outcome = iota
	RejectDiscard
	RejectRequeue
)

// HandlerFunc обрабатывает тело сообщения. Доставка at-least-once:
// обработчик обязан переживать повторный вызов для того же события.
type HandlerFunc func(ctx context.Context, body []byte) Outcome

// Consumer — пул воркеров над очередями с ручным подтверждением.
type Consumer struct {
	conn     *amqp.Connection
	handlers map[string]HandlerFunc
	workers  int
}

func NewConsumer(conn *amqp.Connection, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		conn:     conn,
		handlers: make(map[string]HandlerFunc),
		workers:  workers,
	}
}

func (c *Consumer) Handle(queue string, h HandlerFunc) {
	c.handlers[queue] = h
}

// Run объявляет топологию и запускает воркеры. Блокируется до отмены
// контекста или закрытия соединения.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := DeclareTopology(ch); err != nil {
		return err
	}
	if err := ch.Qos(c.workers, 0, false); err != nil {
		return err
	}

	for queue, handler := range c.handlers {
		deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			return err
		}
		for i := 0; i < c.workers; i++ {
			go c.worker(ctx, queue, deliveries, handler)
		}
		logger.Log.Info("Потребитель запущен",
			zap.String("queue", queue),
			zap.Int("workers", c.workers),
		)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) worker(ctx context.Context, queue string, deliveries <-chan amqp.Delivery, handler HandlerFunc) {
	for d := range deliveries {
		settle(queue, d, safeHandle(ctx, queue, handler, d.Body))
	}
}

// safeHandle превращает панику обработчика в RejectDiscard:
// упавшее сообщение уходит в DLQ, воркер продолжает работать.
func safeHandle(ctx context.Context, queue string, handler HandlerFunc, body []byte) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.Error("Паника в обработчике сообщения",
				zap.String("queue", queue),
				zap.Any("panic", rec),
			)
			out = RejectDiscard
		}
	}()
	return handler(ctx, body)
}

// settle транслирует Outcome в подтверждение брокеру. Nack без requeue
// перемещает сообщение в dead-letter-очередь; решение необратимо.
func settle(queue string, d amqp.Delivery, out Outcome) {
	var err error
	switch out {
	case Accept:
		err = d.Ack(false)
	case RejectRequeue:
		err = d.Nack(false, true)
	default:
		err = d.Nack(false, false)
	}
	if err != nil {
		logger.Log.Error("Не удалось подтвердить сообщение",
			zap.String("queue", queue),
			zap.Error(err),
		)
	}
}
