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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/bizchat/wagateway/internal/platform/config"
	"github.com/bizchat/wagateway/internal/platform/jobqueue"
	"github.com/bizchat/wagateway/internal/platform/logger"
	"github.com/bizchat/wagateway/internal/platform/messagebroker"
	"github.com/bizchat/wagateway/internal/platform/redisclient"

	dispatchapp "github.com/bizchat/wagateway/internal/dispatch_service/app"
	ingestapp "github.com/bizchat/wagateway/internal/ingest_service/app"
	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

const (
	serviceName     = "dispatch_worker"
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
		"metrics_port", cfg.DispatchMetricsPort,
		"queue_name", cfg.QueueName,
		"poll_interval", cfg.WorkerPollInterval.String(),
		"worker_base_url", cfg.WorkerBaseURL,
	)

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

	// The same routing table the producer uses, so per-destination timeouts
	// govern execution.
	routerCfg := ingestapp.DefaultRouterConfig().
		WithTimeoutOverride(domain.DestinationText, cfg.TextWorkerTimeout).
		WithTimeoutOverride(domain.DestinationMedia, cfg.MediaWorkerTimeout).
		WithTimeoutOverride(domain.DestinationAudio, cfg.AudioWorkerTimeout).
		WithTimeoutOverride(domain.DestinationDocument, cfg.DocumentWorkerTimeout)
	if err := routerCfg.Validate(); err != nil {
		appLogger.Error("Invalid routing table", "error", err)
		os.Exit(1)
	}

	queue := jobqueue.NewQueue(jobqueue.NewRedisListStore(redisClient), cfg.QueueName, cfg.DefaultMaxRetries, appLogger)
	dispatcher := dispatchapp.NewDispatcher(cfg.WorkerBaseURL, routerCfg.Destinations, cfg.DispatchDefaultTimeout, appLogger)
	worker := dispatchapp.NewWorker(queue, dispatcher, nc, appLogger, dispatchapp.WorkerConfig{
		PollInterval: cfg.WorkerPollInterval,
	})

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.DispatchMetricsPort),
		Handler: promhttp.Handler(),
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
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
