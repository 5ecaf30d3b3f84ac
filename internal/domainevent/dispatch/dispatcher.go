// Package dispatch publishes stored domain events and marks them sent.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"field-capture-ingest/internal/domainevent/domain"
	"field-capture-ingest/internal/domainevent/repository"
	"field-capture-ingest/internal/messaging"
	"field-capture-ingest/internal/telemetry/metrics"
)

// ErrPublish is returned when the message channel rejects or times out an event. The event stays
// pending and is retried by replay or by the sweeper.
var ErrPublish = errors.New("dispatch: publish failed")

// Dispatcher publishes pending events through a messaging.Publisher.
type Dispatcher struct {
	publisher messaging.Publisher
	timeout   time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

// NewDispatcher returns a Dispatcher. timeout bounds each publish; zero means no bound beyond
// the caller's context. log and m may be nil.
func NewDispatcher(publisher messaging.Publisher, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		publisher: publisher,
		timeout:   timeout,
		log:       log,
		metrics:   m,
		tracer:    otel.Tracer("field-capture-ingest/dispatch"),
		now:       time.Now,
	}
}

// Dispatch publishes e's payload keyed by its payload id, then marks e sent in store.
// Already sent events are skipped. Dispatch never touches anything but e's status.
func (d *Dispatcher) Dispatch(ctx context.Context, store repository.Repository, e *domain.DomainEvent) error {
	if e.IsSent() {
		d.metrics.Dispatch(metrics.ResultSkipped)
		return nil
	}
	ctx, span := d.tracer.Start(ctx, "dispatch.Dispatch", trace.WithAttributes(
		attribute.String("event.id", e.ID),
		attribute.String("event.type", e.Type),
	))
	defer span.End()

	key, err := domain.PayloadID(e.Payload)
	if err != nil {
		return d.fail(span, metrics.ResultPublishFailed, fmt.Errorf("%w: event %s: %w", ErrPublish, e.ID, err))
	}

	pubCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.publisher.Publish(pubCtx, messaging.Message{Key: key, Type: e.Type, Value: e.Payload}); err != nil {
		return d.fail(span, metrics.ResultPublishFailed, fmt.Errorf("%w: event %s: %w", ErrPublish, e.ID, err))
	}

	now := d.now().UTC()
	if err := store.MarkSent(ctx, e.ID, now); err != nil {
		// Published but still pending: the event will be delivered again.
		return d.fail(span, metrics.ResultMarkFailed, fmt.Errorf("mark event %s sent: %w", e.ID, err))
	}
	e.Status = domain.StatusSent
	e.UpdatedAt = now
	d.metrics.Dispatch(metrics.ResultSent)
	d.log.Debug("domain event sent", zap.String("event_id", e.ID), zap.String("payload_id", key))
	return nil
}

// DispatchAll dispatches each event in order and joins the errors.
func (d *Dispatcher) DispatchAll(ctx context.Context, store repository.Repository, events []*domain.DomainEvent) error {
	var errs []error
	for _, e := range events {
		if err := d.Dispatch(ctx, store, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) fail(span trace.Span, result string, err error) error {
	d.metrics.Dispatch(result)
	span.RecordError(err)
	span.SetStatus(codes.Error, result)
	return err
}
