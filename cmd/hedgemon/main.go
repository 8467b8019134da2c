package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wnt/hedgemon/internal/config"
	"github.com/wnt/hedgemon/internal/database"
	"github.com/wnt/hedgemon/internal/logger"
	"github.com/wnt/hedgemon/internal/queue"
	"github.com/wnt/hedgemon/internal/services"
	"github.com/wnt/hedgemon/internal/syncer"
	"github.com/wnt/hedgemon/internal/worker"
)

func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	queueClient, err := queue.NewClient(cfg.RedisURL, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer queueClient.Close()

	portfolio := services.NewPortfolioClient(cfg.OctavAPIURL, cfg.OctavAPIKey)
	venue := services.NewHyperliquidClient(cfg.HyperliquidAPIURL)

	runner := syncer.New(cfg, portfolio, venue, db, appLogger)

	// Seed the queue; already scheduled wallets just get their due time moved
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	for _, wallet := range cfg.WalletAddresses {
		if err := queueClient.Schedule(seedCtx, wallet, time.Now()); err != nil {
			appLogger.Fatal().Err(err).Str("wallet", wallet).Msg("Failed to seed wallet queue")
		}
	}
	cancelSeed()

	manager := worker.NewManager(cfg, queueClient, runner, appLogger)
	if err := manager.Start(); err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to start worker manager")
	}

	// Metrics endpoint
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		appLogger.Info().Str("port", cfg.MetricsPort).Msg("Serving metrics")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	appLogger.Info().
		Int("wallets", len(cfg.WalletAddresses)).
		Dur("sync_interval", cfg.SyncInterval).
		Msg("Hedgemon started")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	appLogger.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("Metrics server shutdown failed")
	}
	if err := manager.Stop(); err != nil {
		appLogger.Error().Err(err).Msg("Worker manager shutdown failed")
	}

	appLogger.Info().Msg("Shutdown complete")
}
