package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/mindup/internal/lib/sl"
)

// Consumer подмножество методов amqp.Channel для чтения очереди.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Handler обрабатывает тело сообщения. Ошибка возвращает сообщение в очередь.
type Handler func(body []byte) error

// Subscription активное чтение одной очереди.
type Subscription struct {
	wg sync.WaitGroup
}

// Wait блокируется, пока не остановится чтение и не завершатся все
// запущенные обработчики. Канал можно закрывать только после Wait.
func (s *Subscription) Wait() {
	s.wg.Wait()
}

// Subscribe начинает чтение очереди queue и сразу возвращает управление.
// Одновременно обрабатывается не больше prefetchCount сообщений,
// чтение прекращается с отменой ctx или закрытием канала.
func Subscribe(ctx context.Context, log *slog.Logger, ch Consumer, queue string, handle Handler) (*Subscription, error) {
	const op = "rabbitmq.Subscribe"
	deliveries, err := ch.Consume(queue, "mindup."+queue, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: queue %q: %w", op, queue, err)
	}

	log = log.With(slog.String("queue", queue))
	sub := &Subscription{}
	slots := make(chan struct{}, prefetchCount)

	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		for {
			var d amqp.Delivery
			var ok bool
			select {
			case <-ctx.Done():
				return
			case d, ok = <-deliveries:
				if !ok {
					log.Warn("delivery channel closed")
					return
				}
			}

			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				if err := d.Nack(false, true); err != nil {
					log.Error("failed to requeue message on shutdown", sl.Err(err))
				}
				return
			}

			sub.wg.Add(1)
			go func() {
				defer sub.wg.Done()
				defer func() { <-slots }()
				settle(log, d, handle(d.Body))
			}()
		}
	}()
	return sub, nil
}

func settle(log *slog.Logger, d amqp.Delivery, handleErr error) {
	if handleErr == nil {
		if err := d.Ack(false); err != nil {
			log.Error("failed to ack message", sl.Err(err))
		}
		return
	}
	log.Error("failed to handle message, requeueing", slog.Uint64("tag", d.DeliveryTag), sl.Err(handleErr))
	if err := d.Nack(false, true); err != nil {
		log.Error("failed to nack message", sl.Err(err))
	}
}
