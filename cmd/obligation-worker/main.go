package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/amqp"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/config"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/ledger"
	applog "github.com/deepak-sekarbabu-coder/apargo-sub000/internal/log"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/storage"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting obligation-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath, storage.Options{
		StrictContinuity: cfg.StrictContinuity,
	})
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher ledger.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	engine := ledger.NewEngine(repo, ledger.NewRegistry(), publisher, ledger.Config{
		OpTimeout: cfg.LedgerOpTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := worker.NewObligationWorker(engine, worker.ObligationWorkerConfig{
		Interval: cfg.ObligationInterval,
	})
	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start obligation worker", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutdown signal received", "signal", sig.String())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := w.Stop(stopCtx); err != nil {
		logger.Error("Worker stop failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
