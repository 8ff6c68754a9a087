// Команда sender читает очереди уведомлений и рассылает письма по SMTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/magabrotheeeer/mindup/internal/app/sender"
	"github.com/magabrotheeeer/mindup/internal/config"
	"github.com/magabrotheeeer/mindup/internal/lib/sl"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	if err := run(cfg, logger); err != nil {
		logger.Error("sender stopped with error", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("sender stopped gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting sender",
		slog.String("env", cfg.Env),
		slog.String("smtp_host", cfg.SMTPHost),
		slog.String("smtp_port", cfg.SMTPPort),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := sender.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return app.Run(ctx)
}
