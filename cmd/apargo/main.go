package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/amqp"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/config"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/http"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/ledger"
	applog "github.com/deepak-sekarbabu-coder/apargo-sub000/internal/log"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting apargo ledger API")

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

	// AMQP is optional: without it the engine still keeps the books, it
	// just stops notifying collaborators.
	var publisher ledger.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled, ledger events will not be published")
	}

	engine := ledger.NewEngine(repo, ledger.NewRegistry(), publisher, ledger.Config{
		OpTimeout: cfg.LedgerOpTimeout,
	})

	srv := http.NewServer(engine, http.Options{
		Port:      cfg.Port,
		CacheSize: cfg.BalanceCacheSize,
		CacheTTL:  cfg.BalanceCacheTTL,
		Logger:    logger.WithComponent(applog.ComponentHTTP),
	})

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("Ledger API listening", "port", cfg.Port)

	select {
	case sig := <-sigCh:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
