package service

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

	"field-capture-ingest/internal/capture/domain"
	"field-capture-ingest/internal/capture/repository"
	"field-capture-ingest/internal/domainevent/dispatch"
	eventdomain "field-capture-ingest/internal/domainevent/domain"
	eventrepository "field-capture-ingest/internal/domainevent/repository"
	legacydomain "field-capture-ingest/internal/legacy/domain"
	"field-capture-ingest/internal/legacy/migration"
	sessiondomain "field-capture-ingest/internal/sourcesession/domain"
	sessionrepository "field-capture-ingest/internal/sourcesession/repository"
	"field-capture-ingest/internal/storage"
	"field-capture-ingest/internal/telemetry/metrics"
)

// Sentinel errors for the ingestion service; the HTTP layer maps them to status codes.
var (
	// ErrConflict is returned when a concurrent submission with the same id won the uniqueness
	// race but its capture could not be read back. Retrying resolves it.
	ErrConflict = errors.New("capture was created concurrently; retry")
	// ErrLegacyCommit is returned when the capture was committed but the legacy session failed
	// to commit. A retry replays the stored capture.
	ErrLegacyCommit = errors.New("legacy session commit failed after capture commit")
)

const rollbackTimeout = 5 * time.Second

// List limits.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// PrimaryUnit is the set of primary-store repositories bound to one fresh storage session.
type PrimaryUnit struct {
	Session  storage.Session
	Captures repository.Repository
	Events   eventrepository.Repository
	Sessions sessionrepository.Repository
}

// LegacyUnit is the set of legacy-store repositories bound to one fresh storage session.
type LegacyUnit struct {
	Session   storage.Session
	Migration migration.Unit
}

// Backend hands out per-request units. Every call returns a new session that is never shared.
type Backend interface {
	Primary() PrimaryUnit
	Legacy() LegacyUnit
}

// Result is the outcome of Submit. Created is true for a first ingestion and false for a replay.
// DispatchErr is set when the capture is stored but its event could not be published; the event
// stays pending and is retried on the next replay.
type Result struct {
	Capture     *domain.Capture
	Created     bool
	DispatchErr error
}

// IngestService stores capture submissions exactly once across the primary and legacy stores.
type IngestService struct {
	backend    Backend
	adapter    *migration.Adapter
	dispatcher *dispatch.Dispatcher
	log        *zap.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

// NewIngestService returns an IngestService with the given dependencies. log and m may be nil.
func NewIngestService(backend Backend, adapter *migration.Adapter, dispatcher *dispatch.Dispatcher, log *zap.Logger, m *metrics.Metrics) *IngestService {
	if log == nil {
		log = zap.NewNop()
	}
	return &IngestService{
		backend:    backend,
		adapter:    adapter,
		dispatcher: dispatcher,
		log:        log,
		metrics:    m,
		tracer:     otel.Tracer("field-capture-ingest/capture"),
		now:        time.Now,
	}
}

// Submit ingests sub. A capture id seen before returns the stored record (Created false) and
// re-dispatches its event if still pending. Otherwise the legacy entity, capture and domain event
// are written in two transactions, committed primary first, and the event is dispatched.
// On any failure before both commits, every open session is rolled back.
func (s *IngestService) Submit(ctx context.Context, sub *domain.Submission) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "capture.Submit", trace.WithAttributes(attribute.String("capture.id", sub.ID)))
	defer span.End()

	primary := s.backend.Primary()
	existing, err := s.find(ctx, primary.Captures, sub.ID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if existing != nil {
		return s.replay(ctx, primary, existing)
	}

	res, err := s.create(ctx, primary, s.backend.Legacy(), sub)
	switch {
	case err == nil:
		s.metrics.Ingest(metrics.OutcomeCreated)
		return res, nil
	case !errors.Is(err, ErrLegacyCommit) && errors.Is(err, storage.ErrConstraintViolation):
		// Another submission with this id won; serve its record.
		winner, rerr := s.find(ctx, primary.Captures, sub.ID)
		if rerr != nil {
			return nil, s.fail(span, rerr)
		}
		if winner == nil {
			s.metrics.Ingest(metrics.OutcomeConflict)
			span.SetStatus(codes.Error, "conflict")
			return nil, fmt.Errorf("%w: capture %s: %w", ErrConflict, sub.ID, err)
		}
		s.log.Info("capture created concurrently, replaying", zap.String("capture_id", sub.ID))
		return s.replay(ctx, primary, winner)
	default:
		return nil, s.fail(span, err)
	}
}

func (s *IngestService) create(ctx context.Context, primary PrimaryUnit, legacy LegacyUnit, sub *domain.Submission) (res *Result, err error) {
	source, err := s.source(ctx, primary.Sessions, sub.SessionID)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			s.rollback(ctx, primary.Session, legacy.Session)
		}
	}()

	if err = legacy.Session.Begin(ctx); err != nil {
		return nil, fmt.Errorf("begin legacy session: %w", err)
	}
	entity, err := s.adapter.Create(ctx, legacy.Migration, legacydomain.Input{
		Capture:    sub,
		Source:     source,
		Attributes: sub.ExtraAttributes,
	})
	if err != nil {
		return nil, err
	}

	if err = primary.Session.Begin(ctx); err != nil {
		return nil, fmt.Errorf("begin primary session: %w", err)
	}
	created, err := primary.Captures.Create(ctx, domain.BuildCapture(entity.ID, sub, s.now()))
	if err != nil {
		return nil, err
	}
	payload, err := created.EventPayload()
	if err != nil {
		return nil, fmt.Errorf("capture %s event payload: %w", created.ID, err)
	}
	event, err := eventdomain.New(domain.EventTypeCreated, payload, s.now())
	if err != nil {
		return nil, err
	}
	if err = primary.Events.Add(ctx, event); err != nil {
		return nil, err
	}

	if err = primary.Session.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit primary session: %w", err)
	}
	if err = legacy.Session.Commit(ctx); err != nil {
		s.log.Error("legacy commit failed after capture commit",
			zap.String("capture_id", created.ID), zap.Int64("reference_id", created.ReferenceID), zap.Error(err))
		return nil, fmt.Errorf("%w: capture %s: %w", ErrLegacyCommit, created.ID, err)
	}

	res = &Result{Capture: created, Created: true}
	res.DispatchErr = s.dispatch(ctx, primary.Events, event)
	return res, nil
}

func (s *IngestService) replay(ctx context.Context, primary PrimaryUnit, c *domain.Capture) (*Result, error) {
	res := &Result{Capture: c}
	event, err := primary.Events.GetByPayloadID(ctx, c.ID)
	if err != nil {
		s.metrics.Ingest(metrics.OutcomeFailed)
		return nil, fmt.Errorf("lookup event for capture %s: %w", c.ID, err)
	}
	switch {
	case event == nil:
		s.log.Warn("replayed capture has no domain event", zap.String("capture_id", c.ID))
	case !event.IsSent():
		res.DispatchErr = s.dispatch(ctx, primary.Events, event)
	}
	s.metrics.Ingest(metrics.OutcomeReplayed)
	return res, nil
}

func (s *IngestService) dispatch(ctx context.Context, events eventrepository.Repository, e *eventdomain.DomainEvent) error {
	err := s.dispatcher.Dispatch(ctx, events, e)
	if err != nil {
		s.log.Warn("domain event dispatch failed, event left pending",
			zap.String("event_id", e.ID), zap.Error(err))
	}
	return err
}

// rollback ends every open session. It runs even when ctx is cancelled.
func (s *IngestService) rollback(ctx context.Context, primary, legacy storage.Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if primary.InProgress() {
		s.metrics.Rollback(metrics.StorePrimary)
		if err := primary.Rollback(ctx); err != nil {
			s.log.Error("primary rollback failed", zap.Error(err))
		}
	}
	if legacy.InProgress() {
		s.metrics.Rollback(metrics.StoreLegacy)
		if err := legacy.Rollback(ctx); err != nil {
			s.log.Error("legacy rollback failed", zap.Error(err))
		}
	}
}

func (s *IngestService) find(ctx context.Context, captures repository.Repository, id string) (*domain.Capture, error) {
	found, err := captures.GetByFilter(ctx, repository.Filter{ID: id})
	if err != nil {
		return nil, fmt.Errorf("lookup capture %s: %w", id, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

// source returns the session sub belongs to, or nil when it has none or it is unknown.
func (s *IngestService) source(ctx context.Context, sessions sessionrepository.Repository, id string) (*sessiondomain.Session, error) {
	if id == "" {
		return nil, nil
	}
	src, err := sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup session %s: %w", id, err)
	}
	return src, nil
}

func (s *IngestService) fail(span trace.Span, err error) error {
	s.metrics.Ingest(metrics.OutcomeFailed)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// ListFilter selects captures for List.
type ListFilter struct {
	SessionID   string
	ReferenceID int64
	Limit       int
	Offset      int
}

// List returns stored captures ordered by creation time. Limit defaults to DefaultListLimit and is
// capped at MaxListLimit.
func (s *IngestService) List(ctx context.Context, f ListFilter) ([]*domain.Capture, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	return s.backend.Primary().Captures.GetByFilter(ctx, repository.Filter{
		SessionID:   f.SessionID,
		ReferenceID: f.ReferenceID,
		Limit:       limit,
		Offset:      offset,
	})
}
