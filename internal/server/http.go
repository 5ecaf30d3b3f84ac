package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	capturehandler "field-capture-ingest/internal/capture/handler"
	devicehandler "field-capture-ingest/internal/deviceconfig/handler"
	healthhandler "field-capture-ingest/internal/health/handler"
	"field-capture-ingest/internal/platform/httperr"
	"field-capture-ingest/internal/security"
	"field-capture-ingest/internal/server/middleware"
)

// Deps holds the services and infrastructure the HTTP API is built from.
type Deps struct {
	// Captures serves /raw-captures.
	Captures capturehandler.Service
	// DeviceConfigurations serves /device-configurations.
	DeviceConfigurations devicehandler.Service
	// Health lists the readiness checks, in order.
	Health []healthhandler.Check
	// Verifier authenticates API routes. If nil, they are open.
	Verifier *security.Verifier
	// Gatherer is exposed at /metrics. If nil, the route is not registered.
	Gatherer prometheus.Gatherer
	Log      *zap.Logger
}

// unlogged paths are probed continuously.
var unlogged = map[string]bool{
	"/health/live":  true,
	"/health/ready": true,
	"/metrics":      true,
}

// NewApp returns the fiber app serving the API.
//
// Route → handler mapping:
//   - /raw-captures            → internal/capture/handler
//   - /device-configurations   → internal/deviceconfig/handler
//   - /health/live, /health/ready → internal/health/handler
//   - /metrics                 → prometheus
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "field-capture-ingest",
		ErrorHandler:          httperr.ErrorHandler(deps.Log),
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
	})
	app.Use(middleware.RequestLog(deps.Log, unlogged))

	healthhandler.NewHandler(deps.Health...).Register(app)
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := middleware.Auth(deps.Verifier)
	app.Use("/raw-captures", auth)
	app.Use("/device-configurations", auth)
	capturehandler.NewHandler(deps.Captures, deps.Log).Register(app)
	devicehandler.NewHandler(deps.DeviceConfigurations).Register(app)
	return app
}
