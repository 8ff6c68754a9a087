// Package mindup собирает основное приложение: REST API, gRPC health и
// все зависимости (PostgreSQL, Redis, RabbitMQ, S3).
package mindup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	// Регистрация Swagger-спецификации.
	_ "github.com/magabrotheeeer/mindup/docs"

	"github.com/magabrotheeeer/mindup/internal/cache"
	"github.com/magabrotheeeer/mindup/internal/config"
	grpchealth "github.com/magabrotheeeer/mindup/internal/grpc/health"
	"github.com/magabrotheeeer/mindup/internal/http/handlers/appointment"
	"github.com/magabrotheeeer/mindup/internal/http/handlers/authn"
	"github.com/magabrotheeeer/mindup/internal/http/handlers/health"
	"github.com/magabrotheeeer/mindup/internal/http/handlers/message"
	"github.com/magabrotheeeer/mindup/internal/http/handlers/user"
	"github.com/magabrotheeeer/mindup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mindup/internal/lib/clock"
	"github.com/magabrotheeeer/mindup/internal/lib/jwt"
	"github.com/magabrotheeeer/mindup/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/mindup/internal/lib/sl"
	"github.com/magabrotheeeer/mindup/internal/migrations"
	"github.com/magabrotheeeer/mindup/internal/objectstore"
	appointmentservice "github.com/magabrotheeeer/mindup/internal/services/appointment"
	chatservice "github.com/magabrotheeeer/mindup/internal/services/chat"
	userservice "github.com/magabrotheeeer/mindup/internal/services/user"
	"github.com/magabrotheeeer/mindup/internal/storage"
)

const (
	shutdownTimeout  = 15 * time.Second
	probeInterval    = 15 * time.Second
	limiterCleanup   = time.Minute
	limiterIdleAfter = 10 * time.Minute
)

// App основное приложение.
type App struct {
	server  *http.Server
	grpc    *grpchealth.Server
	logger  *slog.Logger
	db      *storage.Storage
	cache   *cache.Cache
	conn    *amqp.Connection
	ch      *amqp.Channel
	limiter *middlewarectx.IPRateLimiter
	probe   grpchealth.Probe
}

// New подключает зависимости, применяет миграции и собирает роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.mindup.New"

	clk, err := clock.New()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	images, err := objectstore.New(ctx, cfg.S3)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	publisher := rabbitmq.NewPublisher(ch)

	resources, err := chatservice.LoadResources(cfg.ResourcesPath)
	if err != nil {
		closeAll(logger, ch, conn, cacheRedis, db)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	grpcServer, err := grpchealth.New(cfg.GRPCHealthAddress, logger)
	if err != nil {
		closeAll(logger, ch, conn, cacheRedis, db)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	userService := userservice.New(db, cacheRedis, publisher, images, jwtMaker, userservice.Options{
		FrontendURL:      cfg.FrontendURL,
		VerificationTTL:  cfg.VerificationTTL,
		PasswordResetTTL: cfg.PasswordResetTTL,
	}, logger)
	appointmentService := appointmentservice.New(db, clk, logger)
	chatService := chatservice.New(db, publisher, resources, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	limiter := middlewarectx.NewIPRateLimiter(cfg.RPS, cfg.Burst)

	checks := []health.Check{
		{Name: "postgres", Ping: db.Ping},
		{Name: "redis", Ping: cacheRedis.Ping},
		{Name: "rabbitmq", Ping: func(context.Context) error {
			if conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}},
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Handlers{
		Auth:        authn.New(logger, userService),
		User:        user.New(logger, userService),
		Appointment: appointment.New(logger, appointmentService),
		Message:     message.New(logger, chatService),
		Health:      health.New(logger, checks...),
		Parser:      jwtMaker,
		Revoked:     cacheRedis,
		Limiter:     limiter,
		Metrics:     middlewarectx.NewMetrics(registry),
		Gatherer:    registry,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:  srv,
		grpc:    grpcServer,
		logger:  logger,
		db:      db,
		cache:   cacheRedis,
		conn:    conn,
		ch:      ch,
		limiter: limiter,
		probe: func(ctx context.Context) error {
			for _, c := range checks {
				if err := c.Ping(ctx); err != nil {
					return fmt.Errorf("%s: %w", c.Name, err)
				}
			}
			return nil
		},
	}, nil
}

// Run обслуживает HTTP и gRPC до отмены ctx, затем корректно останавливается.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.limiter.RunCleanup(ctx, limiterCleanup, limiterIdleAfter)
	go a.grpc.Monitor(ctx, probeInterval, a.probe)

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.grpc.Run(ctx)
	}()
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
		cancel()
	case <-ctx.Done():
	}

	timeoutCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	a.logger.Info("shutting down HTTP server gracefully")
	if err := a.server.Shutdown(timeoutCtx); err != nil && runErr == nil {
		runErr = err
	}
	closeAll(a.logger, a.ch, a.conn, a.cache, a.db)
	return runErr
}

type closer interface {
	Close() error
}

func closeAll(logger *slog.Logger, resources ...closer) {
	for _, r := range resources {
		if err := r.Close(); err != nil {
			logger.Error("failed to close resource", sl.Err(err))
		}
	}
}
