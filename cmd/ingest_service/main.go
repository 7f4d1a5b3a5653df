package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/bizchat/wagateway/internal/platform/config"
	"github.com/bizchat/wagateway/internal/platform/database"
	"github.com/bizchat/wagateway/internal/platform/jobqueue"
	"github.com/bizchat/wagateway/internal/platform/logger"
	"github.com/bizchat/wagateway/internal/platform/messagebroker"
	"github.com/bizchat/wagateway/internal/platform/redisclient"

	"github.com/bizchat/wagateway/internal/ingest_service/app"
	"github.com/bizchat/wagateway/internal/ingest_service/domain"
	"github.com/bizchat/wagateway/internal/ingest_service/repository/postgres"
	transporthttp "github.com/bizchat/wagateway/internal/ingest_service/transport/http"
)

const (
	serviceName     = "ingest_service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Starting service...")
	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"webhook_port", cfg.WebhookPort,
		"metrics_port", cfg.IngestMetricsPort,
		"queue_name", cfg.QueueName,
		"postgres_dsn_present", cfg.PostgresDSN != "",
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection pool initialized")

	redisClient, err := redisclient.New(mainCtx, cfg.RedisURL)
	if err != nil {
		appLogger.Error("Failed to initialize redis client", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	appLogger.Info("Redis client initialized")

	nc, err := messagebroker.NewNATSClient(cfg.NATSURL, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	appLogger.Info("NATS connection initialized")

	companyRepo := postgres.NewPgCompanyRepository(dbPool, appLogger)
	userRepo := postgres.NewPgWaUserRepository(dbPool, appLogger)
	conversationRepo := postgres.NewPgConversationRepository(dbPool, appLogger)
	messageRepo := postgres.NewPgMessageRepository(dbPool, appLogger)

	routerCfg := app.DefaultRouterConfig().
		WithTimeoutOverride(domain.DestinationText, cfg.TextWorkerTimeout).
		WithTimeoutOverride(domain.DestinationMedia, cfg.MediaWorkerTimeout).
		WithTimeoutOverride(domain.DestinationAudio, cfg.AudioWorkerTimeout).
		WithTimeoutOverride(domain.DestinationDocument, cfg.DocumentWorkerTimeout)
	if err := routerCfg.Validate(); err != nil {
		appLogger.Error("Invalid routing table", "error", err)
		os.Exit(1)
	}

	queue := jobqueue.NewQueue(jobqueue.NewRedisListStore(redisClient), cfg.QueueName, cfg.DefaultMaxRetries, appLogger)
	pipeline := app.NewPipeline(
		app.NewRouter(routerCfg, appLogger),
		app.NewIdentityResolver(companyRepo, userRepo, conversationRepo, appLogger),
		app.NewMessagePersister(messageRepo, appLogger),
		queue,
		nc,
		appLogger,
	)

	webhookHandler := transporthttp.NewWebhookHandler(pipeline, appLogger, validator.New())

	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Get("/webhooks/provider", webhookHandler.HandleHealth)
	r.Post("/webhooks/provider", webhookHandler.HandleWebhook)

	webhookServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebhookPort),
		Handler: r,
	}
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.IngestMetricsPort),
		Handler: promhttp.Handler(),
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("Webhook server listening", "addr", webhookServer.Addr)
		if err := webhookServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		appLogger.Info("Metrics server listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = webhookServer.Shutdown(shutdownCtx)
		_ = metricsServer.Shutdown(shutdownCtx)
		return nil
	})

	appLogger.Info("Service components initialized. Service is ready.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLogger.Info("Received termination signal", "signal", sig.String())
	case <-groupCtx.Done():
		appLogger.Error("A component failed, initiating shutdown")
	}

	mainCancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Error during graceful shutdown", "error", err)
	}
	appLogger.Info("Service shutdown complete.")
}
