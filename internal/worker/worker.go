package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/hedgemon/internal/logger"
	"github.com/wnt/hedgemon/internal/metrics"
	"github.com/wnt/hedgemon/internal/queue"
	"github.com/wnt/hedgemon/internal/syncer"
)

// Runner executes one analysis pass for a wallet.
type Runner interface {
	Run(ctx context.Context, wallet string) (*syncer.Result, error)
}

// Worker drains the sync queue, running one pass at a time.
type Worker struct {
	id           string
	queue        *queue.Client
	runner       Runner
	syncInterval time.Duration
	logger       zerolog.Logger
	stopped      bool
}

// NewWorker creates a new worker instance
func NewWorker(id string, queueClient *queue.Client, runner Runner, syncInterval time.Duration, baseLogger zerolog.Logger) *Worker {
	return &Worker{
		id:           id,
		queue:        queueClient,
		runner:       runner,
		syncInterval: syncInterval,
		logger:       logger.WithWorker(baseLogger, id),
	}
}

// Start begins the worker processing loop
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Worker received shutdown signal")
			return ctx.Err()
		default:
			if w.stopped {
				w.logger.Info().Msg("Worker stopped")
				return nil
			}

			if err := w.processWallet(ctx); err != nil {
				w.logger.Error().Err(err).Msg("Failed to process wallet")

				// Brief pause to avoid tight error loops
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// Stop signals the worker to stop gracefully
func (w *Worker) Stop() {
	w.stopped = true
	w.logger.Info().Msg("Worker stop signal received")
}

// processWallet handles one queue entry end to end
func (w *Worker) processWallet(ctx context.Context) error {
	wallet, err := w.queue.PopDue(ctx)
	if err != nil {
		return fmt.Errorf("failed to pop wallet from queue: %w", err)
	}

	if wallet == "" {
		// Nothing due yet, avoid spinning
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	if err := w.queue.SetInFlight(ctx, wallet, w.id); err != nil {
		w.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to mark wallet as in-flight")
		if requeueErr := w.queue.Schedule(ctx, wallet, time.Now()); requeueErr != nil {
			w.logger.Error().Err(requeueErr).Str("wallet", wallet).Msg("Failed to requeue wallet after in-flight error")
		}
		return err
	}

	walletLogger := logger.WithWallet(w.logger, wallet)
	startTime := time.Now()

	walletLogger.Info().Msg("Starting analysis pass")

	_, err = w.runner.Run(ctx, wallet)
	duration := time.Since(startTime)

	metrics.RecordWorkerTaskDuration("wallet_sync", w.id, duration.Seconds())

	if removeErr := w.queue.RemoveInFlight(ctx, wallet); removeErr != nil {
		walletLogger.Error().Err(removeErr).Msg("Failed to remove wallet from in-flight tracking")
	}

	if err != nil {
		walletLogger.Error().Err(err).Dur("duration", duration).Msg("Analysis pass failed")

		// Retry sooner than the regular interval
		retry := w.syncInterval / 4
		if retry < time.Minute {
			retry = time.Minute
		}
		if requeueErr := w.queue.Schedule(ctx, wallet, time.Now().Add(retry)); requeueErr != nil {
			walletLogger.Error().Err(requeueErr).Msg("Failed to requeue failed wallet")
		}
		return fmt.Errorf("analysis pass failed: %w", err)
	}

	if err := w.queue.SetLastSynced(ctx, wallet, time.Now()); err != nil {
		walletLogger.Warn().Err(err).Msg("Failed to record last synced time")
	}
	if err := w.queue.Schedule(ctx, wallet, time.Now().Add(w.syncInterval)); err != nil {
		walletLogger.Error().Err(err).Msg("Failed to schedule next pass")
	}

	walletLogger.Info().Dur("duration", duration).Msg("Analysis pass completed successfully")
	return nil
}
