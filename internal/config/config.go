// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Message brokers. An empty MessageBroker logs and discards published events.
const (
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
	BrokerOTel     = "otel"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production"). Selects the logger preset.
	Env string `mapstructure:"APP_ENV"`
	// LogLevel overrides the environment's default log level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// StorageDriver is "postgres" (default) or "memory".
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	// DatabaseURL is the primary store DSN (captures, domain events, sessions, device configurations).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// LegacyDatabaseURL is the legacy store DSN. May point at the same database as DatabaseURL.
	LegacyDatabaseURL string `mapstructure:"LEGACY_DATABASE_URL"`

	// MessageBroker selects the channel domain events are published to: kafka, rabbitmq, otel, or empty.
	MessageBroker string `mapstructure:"MESSAGE_BROKER"`
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// CaptureKafkaTopic is the topic raw capture events are written to.
	CaptureKafkaTopic string `mapstructure:"CAPTURE_KAFKA_TOPIC"`
	RabbitMQURL       string `mapstructure:"RABBITMQ_URL"`
	// RabbitMQExchange may be empty for the default exchange.
	RabbitMQExchange   string `mapstructure:"RABBITMQ_EXCHANGE"`
	RabbitMQRoutingKey string `mapstructure:"RABBITMQ_ROUTING_KEY"`
	// PublishTimeout bounds a single publish (e.g. "5s").
	PublishTimeout string `mapstructure:"PUBLISH_TIMEOUT"`

	// OTelEndpoint is the OTLP gRPC endpoint (e.g. "localhost:4317"). Empty disables export.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// AuthJWTPublicKey is the PEM-encoded public key (RSA or ECDSA) or path to file. When set, the
	// capture and device configuration routes require a bearer token.
	AuthJWTPublicKey string `mapstructure:"AUTH_JWT_PUBLIC_KEY"`
	AuthJWTIssuer    string `mapstructure:"AUTH_JWT_ISSUER"`
	AuthJWTAudience  string `mapstructure:"AUTH_JWT_AUDIENCE"`

	// Worker-only: outbox sweeper tuning.
	OutboxSweepInterval string `mapstructure:"OUTBOX_SWEEP_INTERVAL"`
	OutboxSweepMinAge   string `mapstructure:"OUTBOX_SWEEP_MIN_AGE"`
	OutboxSweepBatch    int    `mapstructure:"OUTBOX_SWEEP_BATCH"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LEGACY_DATABASE_URL", "")
	v.SetDefault("MESSAGE_BROKER", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CAPTURE_KAFKA_TOPIC", "raw-capture-created")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "")
	v.SetDefault("RABBITMQ_ROUTING_KEY", "raw-capture-created")
	v.SetDefault("PUBLISH_TIMEOUT", "5s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("AUTH_JWT_PUBLIC_KEY", "")
	v.SetDefault("AUTH_JWT_ISSUER", "capture-auth")
	v.SetDefault("AUTH_JWT_AUDIENCE", "capture-api")
	v.SetDefault("OUTBOX_SWEEP_INTERVAL", "30s")
	v.SetDefault("OUTBOX_SWEEP_MIN_AGE", "1m")
	v.SetDefault("OUTBOX_SWEEP_BATCH", 100)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}

	switch c.StorageDriver {
	case StoragePostgres:
		if c.DatabaseURL == "" || c.LegacyDatabaseURL == "" {
			return errors.New("config: DATABASE_URL and LEGACY_DATABASE_URL must be set when STORAGE_DRIVER=postgres")
		}
	case StorageMemory:
		if c.Env == "production" {
			return errors.New("config: STORAGE_DRIVER=memory must not be used when APP_ENV=production")
		}
	default:
		return fmt.Errorf("config: STORAGE_DRIVER must be postgres or memory, got %q", c.StorageDriver)
	}

	switch c.MessageBroker {
	case "":
	case BrokerKafka:
		if len(c.KafkaBrokersList()) == 0 || c.CaptureKafkaTopic == "" {
			return errors.New("config: KAFKA_BROKERS and CAPTURE_KAFKA_TOPIC must be set when MESSAGE_BROKER=kafka")
		}
	case BrokerRabbitMQ:
		if c.RabbitMQURL == "" || c.RabbitMQRoutingKey == "" {
			return errors.New("config: RABBITMQ_URL and RABBITMQ_ROUTING_KEY must be set when MESSAGE_BROKER=rabbitmq")
		}
	case BrokerOTel:
		if c.OTelEndpoint == "" {
			return errors.New("config: OTEL_EXPORTER_OTLP_ENDPOINT must be set when MESSAGE_BROKER=otel")
		}
	default:
		return fmt.Errorf("config: MESSAGE_BROKER must be kafka, rabbitmq, otel or empty, got %q", c.MessageBroker)
	}

	for key, val := range map[string]string{
		"PUBLISH_TIMEOUT":       c.PublishTimeout,
		"OUTBOX_SWEEP_INTERVAL": c.OutboxSweepInterval,
		"OUTBOX_SWEEP_MIN_AGE":  c.OutboxSweepMinAge,
	} {
		if d, err := time.ParseDuration(val); err != nil || d <= 0 {
			return fmt.Errorf("config: %s must be a positive duration, got %q", key, val)
		}
	}
	if c.OutboxSweepBatch <= 0 {
		return errors.New("config: OUTBOX_SWEEP_BATCH must be positive")
	}
	return nil
}

// AuthEnabled reports whether bearer authentication is configured.
func (c *Config) AuthEnabled() bool {
	return c != nil && strings.TrimSpace(c.AuthJWTPublicKey) != ""
}

// PublishTimeoutDuration parses PublishTimeout. Returns 5s if unset or invalid.
func (c *Config) PublishTimeoutDuration() time.Duration {
	return parseDuration(c.PublishTimeout, 5*time.Second)
}

// SweepInterval parses OutboxSweepInterval. Returns 30s if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	return parseDuration(c.OutboxSweepInterval, 30*time.Second)
}

// SweepMinAge parses OutboxSweepMinAge. Returns 1m if unset or invalid.
func (c *Config) SweepMinAge() time.Duration {
	return parseDuration(c.OutboxSweepMinAge, time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
