package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"field-capture-ingest/internal/domainevent/repository"
)

// Sweeper periodically re-dispatches events left pending by failed publishes or crashes between
// commit and dispatch.
type Sweeper struct {
	dispatcher *Dispatcher
	store      repository.Repository
	interval   time.Duration
	minAge     time.Duration
	batch      int
	log        *zap.Logger
	now        func() time.Time
}

// NewSweeper returns a Sweeper over store. store must not be inside a transaction.
func NewSweeper(d *Dispatcher, store repository.Repository, interval, minAge time.Duration, batch int, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		dispatcher: d,
		store:      store,
		interval:   interval,
		minAge:     minAge,
		batch:      batch,
		log:        log,
		now:        time.Now,
	}
}

// Run sweeps every interval until ctx is done. Errors are logged and the loop continues.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("outbox sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce dispatches up to one batch of pending events older than minAge and returns how many
// were sent. Publish failures are logged per event and do not stop the batch.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	pending, err := s.store.ListPending(ctx, s.now().Add(-s.minAge), s.batch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, e := range pending {
		if err := s.dispatcher.Dispatch(ctx, s.store, e); err != nil {
			s.log.Warn("outbox redispatch failed", zap.String("event_id", e.ID), zap.Error(err))
			continue
		}
		sent++
	}
	if len(pending) > 0 {
		s.log.Info("outbox sweep", zap.Int("pending", len(pending)), zap.Int("sent", sent))
	}
	return sent, nil
}
