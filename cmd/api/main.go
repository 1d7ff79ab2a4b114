package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/civicdesk/complaints-service/internal/api/http"
	"github.com/civicdesk/complaints-service/internal/bootstrap"
	"github.com/civicdesk/complaints-service/internal/config"
	"github.com/civicdesk/complaints-service/internal/observability"
	"github.com/civicdesk/complaints-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := bootstrap.New(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}

	worker.StartNotificationWorker(ctx, container.Notifications, logger)

	app := httptransport.NewServer(*cfg, httptransport.Services{
		Auth:         container.Auth,
		Admin:        container.Admin,
		Complaints:   container.Complaints,
		Assignment:   container.Assignment,
		Attachments:  container.Attachments,
		Locations:    container.Locations,
		Metrics:      container.Metrics,
		Logger:       logger,
		Dependencies: container.HealthDependencies(),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("storage", cfg.Storage.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	container.Close(closeCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
