package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var keys = []string{
	"HTTP_ADDR", "APP_ENV", "LOG_LEVEL", "STORAGE_DRIVER", "DATABASE_URL", "LEGACY_DATABASE_URL",
	"MESSAGE_BROKER", "KAFKA_BROKERS", "CAPTURE_KAFKA_TOPIC", "RABBITMQ_URL", "RABBITMQ_EXCHANGE",
	"RABBITMQ_ROUTING_KEY", "PUBLISH_TIMEOUT", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
	"AUTH_JWT_PUBLIC_KEY", "AUTH_JWT_ISSUER", "AUTH_JWT_AUDIENCE", "OUTBOX_SWEEP_INTERVAL",
	"OUTBOX_SWEEP_MIN_AGE", "OUTBOX_SWEEP_BATCH",
}

// setEnv clears every config key and applies env for the duration of the test.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{
		"DATABASE_URL":        "postgres://localhost/primary",
		"LEGACY_DATABASE_URL": "postgres://localhost/legacy",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.StorageDriver != StoragePostgres {
		t.Errorf("StorageDriver = %q, want postgres", cfg.StorageDriver)
	}
	if cfg.CaptureKafkaTopic != "raw-capture-created" || cfg.RabbitMQRoutingKey != "raw-capture-created" {
		t.Errorf("topic/routing key = %q/%q", cfg.CaptureKafkaTopic, cfg.RabbitMQRoutingKey)
	}
	if cfg.AuthJWTIssuer != "capture-auth" || cfg.AuthJWTAudience != "capture-api" {
		t.Errorf("issuer/audience = %q/%q", cfg.AuthJWTIssuer, cfg.AuthJWTAudience)
	}
	if cfg.PublishTimeoutDuration() != 5*time.Second {
		t.Errorf("PublishTimeoutDuration = %v", cfg.PublishTimeoutDuration())
	}
	if cfg.SweepInterval() != 30*time.Second || cfg.SweepMinAge() != time.Minute || cfg.OutboxSweepBatch != 100 {
		t.Errorf("sweep = %v/%v/%d", cfg.SweepInterval(), cfg.SweepMinAge(), cfg.OutboxSweepBatch)
	}
	if cfg.AuthEnabled() {
		t.Error("auth should be disabled without a public key")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setEnv(t, map[string]string{
		"HTTP_ADDR":          ":9090",
		"STORAGE_DRIVER":     "memory",
		"MESSAGE_BROKER":     "kafka",
		"KAFKA_BROKERS":      "k1:9092, k2:9092,",
		"PUBLISH_TIMEOUT":    "750ms",
		"OUTBOX_SWEEP_BATCH": "25",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if got := cfg.KafkaBrokersList(); len(got) != 2 || got[0] != "k1:9092" || got[1] != "k2:9092" {
		t.Errorf("KafkaBrokersList = %v", got)
	}
	if cfg.PublishTimeoutDuration() != 750*time.Millisecond {
		t.Errorf("PublishTimeoutDuration = %v", cfg.PublishTimeoutDuration())
	}
	if cfg.OutboxSweepBatch != 25 {
		t.Errorf("OutboxSweepBatch = %d", cfg.OutboxSweepBatch)
	}
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"postgres without urls", map[string]string{}, "DATABASE_URL"},
		{"postgres without legacy url", map[string]string{"DATABASE_URL": "postgres://x/y"}, "LEGACY_DATABASE_URL"},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite"}, "STORAGE_DRIVER"},
		{"memory in production", map[string]string{"STORAGE_DRIVER": "memory", "APP_ENV": "production"}, "production"},
		{"kafka without brokers", map[string]string{"STORAGE_DRIVER": "memory", "MESSAGE_BROKER": "kafka"}, "KAFKA_BROKERS"},
		{"rabbitmq without url", map[string]string{"STORAGE_DRIVER": "memory", "MESSAGE_BROKER": "rabbitmq"}, "RABBITMQ_URL"},
		{"otel without endpoint", map[string]string{"STORAGE_DRIVER": "memory", "MESSAGE_BROKER": "otel"}, "OTEL_EXPORTER_OTLP_ENDPOINT"},
		{"unknown broker", map[string]string{"STORAGE_DRIVER": "memory", "MESSAGE_BROKER": "nats"}, "MESSAGE_BROKER"},
		{"bad publish timeout", map[string]string{"STORAGE_DRIVER": "memory", "PUBLISH_TIMEOUT": "soon"}, "PUBLISH_TIMEOUT"},
		{"negative sweep age", map[string]string{"STORAGE_DRIVER": "memory", "OUTBOX_SWEEP_MIN_AGE": "-1m"}, "OUTBOX_SWEEP_MIN_AGE"},
		{"zero sweep batch", map[string]string{"STORAGE_DRIVER": "memory", "OUTBOX_SWEEP_BATCH": "0"}, "OUTBOX_SWEEP_BATCH"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, tc.env)
			cfg, err := Load()
			if err == nil {
				t.Fatalf("Load succeeded with %+v", cfg)
			}
			if !strings.HasPrefix(err.Error(), "config: ") || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %q, want config error mentioning %s", err, tc.wantErr)
			}
		})
	}
}

func TestDurationHelpers_Fallback(t *testing.T) {
	testCases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"invalid", "forever"},
		{"zero", "0s"},
		{"negative", "-5s"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{PublishTimeout: tc.in, OutboxSweepInterval: tc.in, OutboxSweepMinAge: tc.in}
			if cfg.PublishTimeoutDuration() != 5*time.Second {
				t.Errorf("PublishTimeoutDuration = %v", cfg.PublishTimeoutDuration())
			}
			if cfg.SweepInterval() != 30*time.Second {
				t.Errorf("SweepInterval = %v", cfg.SweepInterval())
			}
			if cfg.SweepMinAge() != time.Minute {
				t.Errorf("SweepMinAge = %v", cfg.SweepMinAge())
			}
		})
	}
}

func TestKafkaBrokersList_Empty(t *testing.T) {
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should have no brokers")
	}
	if got := (&Config{KafkaBrokers: " , "}).KafkaBrokersList(); len(got) != 0 {
		t.Errorf("KafkaBrokersList = %v, want empty", got)
	}
}

func TestAuthEnabled(t *testing.T) {
	if (&Config{AuthJWTPublicKey: "  "}).AuthEnabled() {
		t.Error("whitespace key should not enable auth")
	}
	if !(&Config{AuthJWTPublicKey: "/etc/keys/jwt.pub"}).AuthEnabled() {
		t.Error("key path should enable auth")
	}
}
