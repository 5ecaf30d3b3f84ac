// Package bootstrap builds the storage backend and message publisher selected by configuration.
// It is shared by cmd/server, cmd/worker and cmd/seed.
package bootstrap

import (
	"fmt"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"

	"field-capture-ingest/internal/config"
	"field-capture-ingest/internal/messaging"
	"field-capture-ingest/internal/platform/backend"
	telemetryotel "field-capture-ingest/internal/telemetry/otel"
)

// OpenBackend returns the backend for cfg.StorageDriver. The memory backend loses every write on
// exit and is refused in production by config validation.
func OpenBackend(cfg *config.Config, log *zap.Logger) (backend.Backend, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn("using in-memory storage; data is not persisted")
		return backend.NewMemory(), nil
	case config.StoragePostgres:
		b, err := backend.OpenPostgres(cfg.DatabaseURL, cfg.LegacyDatabaseURL)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// NewPublisher returns the publisher for cfg.MessageBroker. logs is used by the otel broker and
// may be nil otherwise.
func NewPublisher(cfg *config.Config, logs *sdklog.LoggerProvider, log *zap.Logger) (messaging.Publisher, error) {
	switch cfg.MessageBroker {
	case config.BrokerKafka:
		p, err := messaging.NewKafkaPublisher(cfg.KafkaBrokersList(), cfg.CaptureKafkaTopic)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BrokerRabbitMQ:
		p, err := messaging.DialRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQRoutingKey)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return p, nil
	case config.BrokerOTel:
		if logs == nil {
			return nil, fmt.Errorf("otel broker requires a logger provider")
		}
		return telemetryotel.NewLogPublisher(logs), nil
	case "":
		log.Warn("MESSAGE_BROKER not set; domain events are logged and discarded")
		return messaging.NewLogPublisher(log), nil
	default:
		return nil, fmt.Errorf("unsupported message broker %q", cfg.MessageBroker)
	}
}
