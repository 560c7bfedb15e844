package messaging

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Топология обмена пользовательскими событиями. Имена общие для всей
// платформы: издатель (auth-сервис) и потребитель (почтовый воркер)
// объявляют её идемпотентно при старте.
const (
	UserExchange       = "user.exchange"
	DeadLetterExchange = UserExchange + ".dlx"

	UserRegisteredQueue = "user.registered.queue"
	UserResetQueue      = "user.reset.queue"

	UserRegisteredKey = "user.registered"
	UserResetKey      = "user.reset.password"

	// Очереди для сообщений, которые потребитель отверг окончательно
	UserRegisteredDLQ = UserRegisteredQueue + ".dlq"
	UserResetDLQ      = UserResetQueue + ".dlq"

	deadRegisteredKey = "dead.registered"
	deadResetKey      = "dead.reset"
)

func Connect(url string) (*amqp.Connection, error) {
	return amqp.Dial(url)
}

// DeclareTopology объявляет exchange, рабочие очереди с dead-letter-аргументами
// и DLQ. Вызов безопасен при любом числе повторов.
func DeclareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(UserExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	if err := declareWorkQueue(ch, UserRegisteredQueue, UserRegisteredKey, deadRegisteredKey); err != nil {
		return err
	}
	if err := declareWorkQueue(ch, UserResetQueue, UserResetKey, deadResetKey); err != nil {
		return err
	}

	if err := declareDLQ(ch, UserRegisteredDLQ, deadRegisteredKey); err != nil {
		return err
	}
	return declareDLQ(ch, UserResetDLQ, deadResetKey)
}

func declareWorkQueue(ch *amqp.Channel, queue, routingKey, deadKey string) error {
	args := amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchange,
		"x-dead-letter-routing-key": deadKey,
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(queue, routingKey, UserExchange, false, nil)
}

func declareDLQ(ch *amqp.Channel, queue, deadKey string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(queue, deadKey, DeadLetterExchange, false, nil)
}
