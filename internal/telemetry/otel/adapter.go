package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"field-capture-ingest/internal/messaging"
)

const instrumentationName = "field-capture-ingest/events"

// emitter is the subset of otellog.Logger used to publish records.
type emitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// LogPublisher implements messaging.Publisher by emitting each message as an OTel log record,
// so events reach whatever backend the collector forwards logs to.
type LogPublisher struct {
	logger emitter
	now    func() time.Time
}

// NewLogPublisher returns a publisher emitting through provider's logger.
func NewLogPublisher(provider *sdklog.LoggerProvider) *LogPublisher {
	return newLogPublisher(provider.Logger(instrumentationName))
}

func newLogPublisher(e emitter) *LogPublisher {
	return &LogPublisher{logger: e, now: time.Now}
}

// Publish emits msg with the payload as body and key/type as attributes.
func (p *LogPublisher) Publish(ctx context.Context, msg messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := otellog.Record{}
	rec.SetTimestamp(p.now().UTC())
	rec.SetSeverity(otellog.SeverityInfo)
	if len(msg.Value) > 0 {
		rec.SetBody(otellog.BytesValue(msg.Value))
	}
	if msg.Key != "" {
		rec.AddAttributes(otellog.String("event.key", msg.Key))
	}
	if msg.Type != "" {
		rec.AddAttributes(otellog.String("event.type", msg.Type))
	}
	p.logger.Emit(ctx, rec)
	return nil
}

// Close is a no-op; the LoggerProvider is shut down with the other providers.
func (p *LogPublisher) Close() error { return nil }

var _ messaging.Publisher = (*LogPublisher)(nil)
