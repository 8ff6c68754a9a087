// Package sender собирает сервис рассылки писем из очередей уведомлений.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/mindup/internal/config"
	"github.com/magabrotheeeer/mindup/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/mindup/internal/lib/sl"
	"github.com/magabrotheeeer/mindup/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/mindup/internal/services/sender"
)

// App приложение рассылки.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	queues        []rabbitmq.QueueConfig
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New подключается к брокеру и объявляет очереди уведомлений.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	queues := rabbitmq.GetNotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		queues:        queues,
		senderService: senderservice.New(transport, logger),
		logger:        logger,
	}, nil
}

// Run читает все очереди уведомлений до отмены ctx. Канал закрывается
// только после того, как завершатся уже начатые отправки.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	subs := make([]*rabbitmq.Subscription, 0, len(a.queues))
	shutdown := func() {
		cancel()
		for _, sub := range subs {
			sub.Wait()
		}
		a.close()
	}

	for _, q := range a.queues {
		sub, err := rabbitmq.Subscribe(ctx, a.logger, a.ch, q.QueueName, a.senderService.Handle)
		if err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			shutdown()
			return err
		}
		subs = append(subs, sub)
		a.logger.Info("consumer started", slog.String("queue", q.QueueName))
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down, draining in-flight messages")
	shutdown()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
