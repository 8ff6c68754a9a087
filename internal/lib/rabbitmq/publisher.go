package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// Channel подмножество методов amqp.Channel, нужное для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher публикует уведомления в один обменник.
type Publisher struct {
	ch       Channel
	exchange string
}

// NewPublisher создает Publisher для обменника уведомлений.
func NewPublisher(ch Channel) *Publisher {
	return &Publisher{ch: ch, exchange: ExchangeNotifications}
}

// Publish кодирует message в JSON и отправляет его с ключом routingKey.
// Сообщения помечаются как persistent и получают собственный MessageId.
func (p *Publisher) Publish(routingKey string, message any) error {
	const op = "rabbitmq.Publish"
	msg, err := encode(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := p.ch.Publish(p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("%s: routing key %q: %w", op, routingKey, err)
	}
	return nil
}

func encode(message any) (amqp.Publishing, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
