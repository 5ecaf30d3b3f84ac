package otel

import (
	"context"
	"errors"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"field-capture-ingest/internal/messaging"
)

// recordCapture stores the Records passed to Emit for assertion.
type recordCapture struct {
	recs []otellog.Record
}

func (r *recordCapture) Emit(_ context.Context, rec otellog.Record) {
	r.recs = append(r.recs, rec)
}

func TestLogPublisher_RecordMapping(t *testing.T) {
	rc := &recordCapture{}
	p := newLogPublisher(rc)
	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	msg := messaging.Message{Key: "cap-1", Type: "raw_capture.created", Value: []byte(`{"id":"cap-1"}`)}
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(rc.recs) != 1 {
		t.Fatalf("records = %d, want 1", len(rc.recs))
	}
	rec := rc.recs[0]
	if got := string(rec.Body().AsBytes()); got != `{"id":"cap-1"}` {
		t.Errorf("body = %q", got)
	}
	if !rec.Timestamp().Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), fixed)
	}
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	if attrs["event.key"] != "cap-1" || attrs["event.type"] != "raw_capture.created" {
		t.Errorf("attributes = %v", attrs)
	}
}

func TestLogPublisher_EmptyFields(t *testing.T) {
	rc := &recordCapture{}
	p := newLogPublisher(rc)
	if err := p.Publish(context.Background(), messaging.Message{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	rec := rc.recs[0]
	if !rec.Body().Empty() {
		t.Error("body should be empty without a value")
	}
	if rec.AttributesLen() != 0 {
		t.Errorf("attributes = %d, want 0", rec.AttributesLen())
	}
}

func TestLogPublisher_CancelledContext(t *testing.T) {
	rc := &recordCapture{}
	p := newLogPublisher(rc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, messaging.Message{Key: "cap-1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Publish err = %v, want context.Canceled", err)
	}
	if len(rc.recs) != 0 {
		t.Error("no record should be emitted for a cancelled context")
	}
}

func TestNewLogPublisher_WithSDKProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	p := NewLogPublisher(provider)
	if err := p.Publish(context.Background(), messaging.Message{Key: "cap-1", Value: []byte("{}")}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
