package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"delivery/internal/app"
	"delivery/internal/calculator"
	"delivery/internal/config"
	"delivery/internal/geocoding"
	"delivery/internal/handler"
	"delivery/internal/messaging"
	"delivery/internal/paystack"
	internalRedis "delivery/internal/redis"
	"delivery/internal/repository/postgres"
	"delivery/internal/service"
	"delivery/internal/telemetry"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	logger := app.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	nrApp := app.NewNewRelicApp(cfg.NewRelic, logger)
	if nrApp != nil {
		defer nrApp.Shutdown(5 * time.Second)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracerProvider(startCtx, cfg.Telemetry.OTLPEndpoint,
			cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	metricsHandler, shutdownMetrics, err := telemetry.InitMeterProvider(cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion)
	if err != nil {
		return err
	}
	defer shutdownMetrics(context.Background())

	db, err := app.NewDatabase(startCtx, cfg.Database, nrApp, cfg.Telemetry.Enabled)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(startCtx, cfg.Redis, nrApp)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	producer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	geocoder, err := geocoding.NewClient(cfg.Maps.APIKey, "ng")
	if err != nil {
		return err
	}

	metrics, err := telemetry.NewDispatchMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}

	w := wire(db, redisClient, nrApp, producer, geocoder, metrics, metricsHandler, cfg, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      w.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return w.sweep.Run(gctx)
	})

	// Graceful shutdown.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

type wired struct {
	handler http.Handler
	sweep   *service.DispatchSweep
}

// wire wires all dependencies and returns the HTTP handler and the sweep.
func wire(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	publisher service.Publisher,
	geocoder service.Geocoder,
	metrics service.Metrics,
	metricsHandler http.Handler,
	cfg *config.Config,
	logger *slog.Logger,
) wired {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	store := postgres.NewStore(db)
	gateway := paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.Timeout)

	pricing := calculator.NewPricing(cfg.Pricing.Granularity, cfg.Pricing.PriceBoundPercent)
	timing := calculator.Timing{
		DeliveryBoundPercent: cfg.Pricing.DeliveryTimePercent,
		ArrivalBoundPercent:  cfg.Pricing.ArrivalTimePercent,
	}

	// Initialize services.
	notifier := service.NewNotificationService(publisher, logger)
	payments := service.NewPaymentCoordinator(gateway, app.Fee(cfg.Fees.Cancellation), cfg.Pricing.Currency, metrics, logger)
	selector := service.NewDriverCandidateSelector(store.Repos().Drivers, cfg.Dispatch.SearchRadius, nil)
	lifecycle := service.NewOrderLifecycle(store, payments, notifier, selector, lockStore, cfg.Dispatch.PaymentLockTTL, metrics, logger)
	orders := service.NewOrderService(store, geocoder, cacheStore, selector, notifier, pricing, timing, cfg.Pricing.Currency, logger)
	drivers := service.NewDriverService(store, locationStore, timing, logger)
	withdrawals := service.NewWithdrawalService(store, gateway, notifier, lockStore, cfg.Dispatch.PaymentLockTTL,
		app.Fee(cfg.Fees.Transaction), cfg.Pricing.Currency, logger)
	webhooks := service.NewWebhookService(store, payments, notifier, logger)
	sweep := service.NewDispatchSweep(store, selector, lifecycle, lockStore, service.SweepConfig{
		Interval:     cfg.Dispatch.SweepInterval,
		StaleAfter:   cfg.Dispatch.StaleAfter,
		OrderTimeout: cfg.Dispatch.OrderTimeout,
		Workers:      cfg.Dispatch.Workers,
		LeaderTTL:    cfg.Dispatch.LeaderLockTTL,
	}, metrics, logger)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		OrderHandler:   handler.NewOrderHandler(orders, lifecycle, drivers),
		JobHandler:     handler.NewJobHandler(lifecycle),
		DriverHandler:  handler.NewDriverHandler(drivers),
		PaymentHandler: handler.NewPaymentHandler(withdrawals, webhooks, cfg.Paystack.SecretKey, logger),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		Metrics:        metricsHandler,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		Logger:         logger,
	})

	return wired{
		handler: app.NewServerHandler(router, cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled),
		sweep:   sweep,
	}
}
