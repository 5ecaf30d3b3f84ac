// Worker re-dispatches domain events left pending by failed publishes. It reads the same
// configuration as the server; OUTBOX_SWEEP_INTERVAL, OUTBOX_SWEEP_MIN_AGE and OUTBOX_SWEEP_BATCH
// tune the sweep.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"field-capture-ingest/internal/config"
	"field-capture-ingest/internal/domainevent/dispatch"
	"field-capture-ingest/internal/logger"
	"field-capture-ingest/internal/platform/bootstrap"
	telemetryotel "field-capture-ingest/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("worker exited", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: "field-capture-ingest-worker",
		Insecure:    cfg.OTelInsecure,
	}, log)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	b, err := bootstrap.OpenBackend(cfg, log)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer b.Close()

	publisher, err := bootstrap.NewPublisher(cfg, providers.LoggerProvider, log)
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}
	defer publisher.Close()

	dispatcher := dispatch.NewDispatcher(publisher, cfg.PublishTimeoutDuration(), log, nil)
	sweeper := dispatch.NewSweeper(dispatcher, b.Events(), cfg.SweepInterval(), cfg.SweepMinAge(), cfg.OutboxSweepBatch, log)

	log.Info("worker: sweeping pending domain events",
		zap.Duration("interval", cfg.SweepInterval()), zap.Duration("min_age", cfg.SweepMinAge()),
		zap.Int("batch", cfg.OutboxSweepBatch))
	sweeper.Run(ctx)
	log.Info("worker: stopped")
	return nil
}
