package bootstrap

import (
	"testing"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"

	"field-capture-ingest/internal/config"
	"field-capture-ingest/internal/messaging"
	"field-capture-ingest/internal/platform/backend"
	telemetryotel "field-capture-ingest/internal/telemetry/otel"
)

func TestNewPublisher(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     config.Config
		logs    *sdklog.LoggerProvider
		check   func(messaging.Publisher) bool
		wantErr bool
	}{
		{
			name:  "unset logs and discards",
			cfg:   config.Config{},
			check: func(p messaging.Publisher) bool { _, ok := p.(*messaging.LogPublisher); return ok },
		},
		{
			name:  "kafka",
			cfg:   config.Config{MessageBroker: config.BrokerKafka, KafkaBrokers: "localhost:9092", CaptureKafkaTopic: "raw-capture-created"},
			check: func(p messaging.Publisher) bool { _, ok := p.(*messaging.KafkaPublisher); return ok },
		},
		{
			name:  "otel",
			cfg:   config.Config{MessageBroker: config.BrokerOTel},
			logs:  sdklog.NewLoggerProvider(),
			check: func(p messaging.Publisher) bool { _, ok := p.(*telemetryotel.LogPublisher); return ok },
		},
		{name: "otel without provider", cfg: config.Config{MessageBroker: config.BrokerOTel}, wantErr: true},
		{name: "kafka without brokers", cfg: config.Config{MessageBroker: config.BrokerKafka, CaptureKafkaTopic: "t"}, wantErr: true},
		{name: "unknown", cfg: config.Config{MessageBroker: "sqs"}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPublisher(&tc.cfg, tc.logs, zap.NewNop())
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NewPublisher should fail, got %T", p)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPublisher: %v", err)
			}
			defer p.Close()
			if !tc.check(p) {
				t.Errorf("publisher type = %T", p)
			}
		})
	}
}

func TestOpenBackend(t *testing.T) {
	b, err := OpenBackend(&config.Config{StorageDriver: config.StorageMemory}, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenBackend(memory): %v", err)
	}
	defer b.Close()
	if _, ok := b.(*backend.Memory); !ok {
		t.Errorf("backend type = %T, want *backend.Memory", b)
	}

	if _, err := OpenBackend(&config.Config{StorageDriver: config.StoragePostgres}, zap.NewNop()); err == nil {
		t.Error("OpenBackend(postgres) with empty DSNs should fail")
	}
	if _, err := OpenBackend(&config.Config{StorageDriver: "sqlite"}, zap.NewNop()); err == nil {
		t.Error("OpenBackend(unknown) should fail")
	}
}
