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

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/giftring/backend/internal/platform/config"
	"github.com/giftring/backend/internal/platform/database"
	"github.com/giftring/backend/internal/platform/logger"
	"github.com/giftring/backend/internal/platform/messagebroker"

	"github.com/giftring/backend/internal/exchange_service/app"
	"github.com/giftring/backend/internal/exchange_service/repository/postgres"
	transporthttp "github.com/giftring/backend/internal/exchange_service/transport/http"
)

const (
	serviceName     = "exchange-service"
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

	if err := database.RunMigrations(cfg.MigrationsPath, cfg.PostgresDSN, log); err != nil {
		log.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

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

	// Repositories and services.
	txRunner := postgres.NewPgTxRunner(dbPool)
	groupRepo := postgres.NewPgGroupRepository(log)
	participantRepo := postgres.NewPgParticipantRepository(log)
	ruleRepo := postgres.NewPgExclusionRuleRepository(log)
	assignmentRepo := postgres.NewPgAssignmentRepository(log)
	intentWriter := postgres.NewPgNotificationIntentWriter(log)

	groupService := app.NewGroupService(dbPool, txRunner, groupRepo, participantRepo, ruleRepo, log)
	drawService := app.NewDrawService(dbPool, txRunner, groupRepo, participantRepo, ruleRepo, assignmentRepo, intentWriter, natsClient, log)
	wishService := app.NewWishService(txRunner, groupRepo, participantRepo, assignmentRepo, intentWriter, cfg.WishNotifyDelay, log)

	handler := transporthttp.NewExchangeHandler(groupService, drawService, wishService, log, validator.New())
	router := transporthttp.NewRouter(handler, cfg.JWTSecret, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ExchangeServicePort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		log.Info("HTTP server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		log.Info("Initiating HTTP server graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
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
