package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"field-capture-ingest/internal/domainevent/domain"
)

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	old := addEvent(t, store, "old", now.Add(-10*time.Minute))
	fresh := addEvent(t, store, "fresh", now.Add(-10*time.Second))

	pub := &fakePublisher{}
	s := NewSweeper(NewDispatcher(pub, time.Second, nil, nil), store, time.Minute, time.Minute, 10, nil)
	s.now = func() time.Time { return now }

	sent, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	if msgs := pub.sent(); len(msgs) != 1 || msgs[0].Key != "old" {
		t.Fatalf("published = %+v", msgs)
	}
	if got, _ := store.GetByPayloadID(ctx, "old"); got.ID != old.ID || !got.IsSent() {
		t.Errorf("old event = %+v, want sent", got)
	}
	if got, _ := store.GetByPayloadID(ctx, "fresh"); got.Status != domain.StatusPending || got.ID != fresh.ID {
		t.Errorf("fresh event = %+v, want pending", got)
	}

	sent, err = s.SweepOnce(ctx)
	if err != nil || sent != 0 {
		t.Errorf("second SweepOnce = %d, %v; want 0, nil", sent, err)
	}
}

func TestSweeper_PublishFailureContinues(t *testing.T) {
	store := newStore()
	now := time.Now()
	addEvent(t, store, "a", now.Add(-time.Hour))
	addEvent(t, store, "b", now.Add(-time.Hour))

	s := NewSweeper(NewDispatcher(&fakePublisher{err: errors.New("down")}, time.Second, nil, nil), store, time.Minute, time.Minute, 10, nil)
	sent, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, want 0", sent)
	}
	pending, _ := store.ListPending(context.Background(), now, 10)
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	store := newStore()
	addEvent(t, store, "a", time.Now().Add(-time.Hour))
	pub := &fakePublisher{}
	s := NewSweeper(NewDispatcher(pub, time.Second, nil, nil), store, 5*time.Millisecond, time.Minute, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	deadline := time.After(2 * time.Second)
	for len(pub.sent()) == 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not dispatch the pending event")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
