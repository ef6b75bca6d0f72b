package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/giftring/backend/internal/platform/config"
	"github.com/giftring/backend/internal/platform/database"
	"github.com/giftring/backend/internal/platform/logger"
	"github.com/giftring/backend/internal/platform/messagebroker"

	"github.com/giftring/backend/internal/notifier_service/adapters/directory"
	"github.com/giftring/backend/internal/notifier_service/adapters/mailer"
	"github.com/giftring/backend/internal/notifier_service/app"
	"github.com/giftring/backend/internal/notifier_service/repository/postgres"
)

const (
	serviceName     = "notifier-service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel).With("service", serviceName)
	log.Info("Starting service...")

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		log.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("Database connection pool initialized")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, log, serviceName)
	if err != nil {
		log.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	log.Info("NATS connection initialized")

	intentRepo := postgres.NewPgNotificationIntentRepository(dbPool, log)
	exchangeReader := postgres.NewPgExchangeReader(dbPool, log)
	directoryClient := directory.NewHTTPClient(cfg.DirectoryServiceURL, log)

	var mailAdapter mailer.Adapter
	switch cfg.MailProvider {
	case "httpapi":
		mailAdapter = mailer.NewHTTPAPIAdapter(cfg.MailAPIBaseURL, cfg.MailAPIKey, cfg.MailFromAddress, log)
	default:
		mailAdapter = mailer.NewMockAdapter(log, cfg.MockMailerFailRate, 10, 50)
	}
	log.Info("Mail transport configured", "provider", mailAdapter.GetName())

	workerCfg := app.WorkerConfig{
		PollInterval: cfg.NotifierPollInterval,
		BatchSize:    cfg.NotifierBatchSize,
		MaxAttempts:  cfg.NotifierMaxAttempts,
		BaseBackoff:  cfg.NotifierBaseBackoff,
		ClaimTimeout: cfg.NotifierClaimTimeout,
		MailTimeout:  cfg.MailTransportTimeout,
	}
	worker := app.NewDeliveryWorker(intentRepo, exchangeReader, directoryClient, mailAdapter, natsClient, log, workerCfg)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.NotifierMetricsPort),
		Handler: metricsMux,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		log.Info("Starting delivery worker...", "poll_interval", workerCfg.PollInterval, "batch_size", workerCfg.BatchSize)
		ticker := time.NewTicker(workerCfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				processed, failed, pollErr := worker.PollAndDeliver(groupCtx)
				if pollErr != nil {
					log.ErrorContext(groupCtx, "Delivery worker encountered a critical error, stopping.", "error", pollErr)
					return pollErr
				}
				if processed > 0 {
					log.InfoContext(groupCtx, "Delivery tick complete", "processed", processed, "failed", failed)
				}
			case <-groupCtx.Done():
				log.InfoContext(groupCtx, "Delivery worker stopping")
				return groupCtx.Err()
			}
		}
	})

	g.Go(func() error {
		log.Info("Metrics server listening", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	log.Info("Service components initialized. Service is ready.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received termination signal", "signal", sig.String())
	case <-groupCtx.Done():
		log.Error("A critical component failed, initiating shutdown")
	}

	mainCancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Error during shutdown", "error", err)
	}
	log.Info("Service shutdown complete.")
}
