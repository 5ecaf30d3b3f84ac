// seed inserts a development source session and device configuration so captures submitted
// against devSessionID pick up grower and organization fields. Idempotent: existing rows are kept.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"field-capture-ingest/internal/config"
	"field-capture-ingest/internal/deviceconfig/domain"
	deviceservice "field-capture-ingest/internal/deviceconfig/service"
	"field-capture-ingest/internal/logger"
	"field-capture-ingest/internal/platform/bootstrap"
	sessiondomain "field-capture-ingest/internal/sourcesession/domain"
)

const (
	devSessionID       = "9b2f3a1e-2c4d-4e5f-8a6b-7c8d9e0f1a2b"
	devDeviceConfigID  = "1b4e28ba-2fa1-41d2-883f-0016d3cca427"
	devGrowerAccountID = "5d3f0c1a-8b7e-4f2d-9c6a-0e1b2c3d4e5f"
	devOrganizationID  = "2a6c9e4b-1d3f-4a5b-8c7d-9e0f1a2b3c4d"
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

	b, err := bootstrap.OpenBackend(cfg, log)
	if err != nil {
		log.Fatal("open storage", zap.Error(err))
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	devices := deviceservice.NewDeviceConfigurationService(b, log)
	device, created, err := devices.Create(ctx, &domain.DeviceConfiguration{
		ID:               devDeviceConfigID,
		DeviceIdentifier: "dev-android-001",
		Brand:            "google",
		Model:            "Pixel 8",
		Device:           "shiba",
		Hardware:         "shiba",
		Manufacturer:     "Google",
		AppBuild:         "1",
		AppVersion:       "0.1.0-dev",
		OSVersion:        "14",
		SDKVersion:       "34",
		LoggedAt:         time.Now().UTC(),
	})
	if err != nil {
		log.Fatal("seed device configuration", zap.Error(err))
	}
	log.Info("device configuration", zap.String("id", device.ID), zap.Bool("created", created))

	sessions := b.Sessions()
	existing, err := sessions.GetByID(ctx, devSessionID)
	if err != nil {
		log.Fatal("lookup source session", zap.Error(err))
	}
	if existing != nil {
		log.Info("source session already present", zap.String("id", devSessionID))
		return
	}
	if _, err := sessions.Create(ctx, &sessiondomain.Session{
		ID:                    devSessionID,
		DeviceConfigurationID: device.ID,
		GrowerAccountID:       devGrowerAccountID,
		OrganizationID:        devOrganizationID,
		CreatedAt:             time.Now().UTC(),
	}); err != nil {
		log.Fatal("seed source session", zap.Error(err))
	}
	log.Info("source session created", zap.String("id", devSessionID))
}
