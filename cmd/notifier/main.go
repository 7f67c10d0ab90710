package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delivery/internal/app"
	"delivery/internal/config"
	"delivery/internal/messaging"
	"delivery/internal/push"
	"delivery/internal/repository/postgres"
	"delivery/internal/telemetry"
)

// notifier drains the push topic and delivers each message through FCM.
func main() {
	cfg := config.Load()
	logger := app.NewLogger(cfg.LogLevel).With("component", "notifier")
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("notifier exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("notifier exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracerProvider(startCtx, cfg.Telemetry.OTLPEndpoint,
			cfg.Telemetry.ServiceName+"-notifier", cfg.Telemetry.ServiceVersion)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	db, err := app.NewDatabase(startCtx, cfg.Database, nil, cfg.Telemetry.Enabled)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := push.NewFirebaseClient(startCtx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}
	sender := push.NewSender(client, postgres.NewUserRepository(db), logger)

	consumer := messaging.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger)
	defer consumer.Close()

	logger.Info("consuming pushes",
		slog.String("topic", cfg.Kafka.Topic),
		slog.String("group", cfg.Kafka.GroupID),
	)
	return consumer.Consume(ctx, sender.Send)
}
