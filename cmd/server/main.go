// server serves the raw capture and device configuration HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	captureservice "field-capture-ingest/internal/capture/service"
	"field-capture-ingest/internal/config"
	deviceservice "field-capture-ingest/internal/deviceconfig/service"
	"field-capture-ingest/internal/domainevent/dispatch"
	healthhandler "field-capture-ingest/internal/health/handler"
	"field-capture-ingest/internal/legacy/migration"
	"field-capture-ingest/internal/logger"
	"field-capture-ingest/internal/platform/bootstrap"
	"field-capture-ingest/internal/security"
	"field-capture-ingest/internal/server"
	"field-capture-ingest/internal/telemetry/metrics"
	telemetryotel "field-capture-ingest/internal/telemetry/otel"
)

const shutdownTimeout = 15 * time.Second

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
		log.Error("server exited", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: "field-capture-ingest",
		Insecure:    cfg.OTelInsecure,
	}, log)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	var verifier *security.Verifier
	if cfg.AuthEnabled() {
		verifier, err = security.NewVerifierFromPEM(cfg.AuthJWTPublicKey, cfg.AuthJWTIssuer, cfg.AuthJWTAudience)
		if err != nil {
			return err
		}
	} else {
		log.Warn("AUTH_JWT_PUBLIC_KEY not set; API routes are unauthenticated")
	}

	dispatcher := dispatch.NewDispatcher(publisher, cfg.PublishTimeoutDuration(), log, m)
	app := server.NewApp(server.Deps{
		Captures:             captureservice.NewIngestService(b, migration.NewAdapter(), dispatcher, log, m),
		DeviceConfigurations: deviceservice.NewDeviceConfigurationService(b, log),
		Health: []healthhandler.Check{
			{Name: "primary_store", Ping: b.PingPrimary},
			{Name: "legacy_store", Ping: b.PingLegacy},
		},
		Verifier: verifier,
		Gatherer: reg,
		Log:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr),
			zap.String("storage", cfg.StorageDriver), zap.String("broker", cfg.MessageBroker))
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down http server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("http server stopped")
	return nil
}
