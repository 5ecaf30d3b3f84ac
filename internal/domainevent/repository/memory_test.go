package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"field-capture-ingest/internal/domainevent/domain"
	"field-capture-ingest/internal/storage"
	"field-capture-ingest/internal/storage/memory"
)

func newEvent(t *testing.T, payloadID string, at time.Time) *domain.DomainEvent {
	t.Helper()
	payload, _ := json.Marshal(map[string]any{"id": payloadID, "note": "n"})
	e, err := domain.New("raw_capture.created", payload, at)
	if err != nil {
		t.Fatalf("domain.New: %v", err)
	}
	return e
}

func TestMemoryRepository_GetByPayloadID(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := NewMemoryRepository(NewMemoryTable(store), store.NewSession())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := newEvent(t, "cap-1", base)
	newer := newEvent(t, "cap-1", base.Add(time.Minute))
	for _, e := range []*domain.DomainEvent{newer, older, newEvent(t, "cap-2", base)} {
		if err := repo.Add(ctx, e); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got, err := repo.GetByPayloadID(ctx, "cap-1")
	if err != nil {
		t.Fatalf("GetByPayloadID: %v", err)
	}
	if got == nil || got.ID != older.ID {
		t.Fatalf("GetByPayloadID = %+v, want oldest event %s", got, older.ID)
	}

	missing, err := repo.GetByPayloadID(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("GetByPayloadID(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestMemoryRepository_MarkSentAndListPending(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := NewMemoryRepository(NewMemoryTable(store), store.NewSession())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := newEvent(t, "a", base)
	b := newEvent(t, "b", base.Add(time.Second))
	c := newEvent(t, "c", base.Add(time.Hour))
	for _, e := range []*domain.DomainEvent{c, b, a} {
		if err := repo.Add(ctx, e); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := repo.MarkSent(ctx, a.ID, base.Add(2*time.Second)); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	pending, err := repo.ListPending(ctx, base.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("ListPending = %+v, want only b", pending)
	}

	all, err := repo.ListPending(ctx, base.Add(2*time.Hour), 1)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(all) != 1 || all[0].ID != b.ID {
		t.Fatalf("ListPending(limit 1) = %+v, want b", all)
	}

	sent, err := repo.GetByFilter(ctx, Filter{Status: domain.StatusSent})
	if err != nil {
		t.Fatalf("GetByFilter: %v", err)
	}
	if len(sent) != 1 || sent[0].ID != a.ID || !sent[0].UpdatedAt.Equal(base.Add(2*time.Second)) {
		t.Fatalf("sent = %+v", sent)
	}

	if err := repo.MarkSent(ctx, "unknown", base); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("MarkSent(unknown) err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepository_AddStagedUntilCommit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	table := NewMemoryTable(store)
	session := store.NewSession()
	repo := NewMemoryRepository(table, session)
	observer := NewMemoryRepository(table, store.NewSession())

	if err := session.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	e := newEvent(t, "cap-9", time.Now())
	if err := repo.Add(ctx, e); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got, _ := observer.GetByPayloadID(ctx, "cap-9"); got != nil {
		t.Fatal("staged event visible to another session")
	}
	if got, _ := repo.GetByPayloadID(ctx, "cap-9"); got == nil {
		t.Fatal("staged event not visible to its own session")
	}
	if err := session.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got, _ := observer.GetByPayloadID(ctx, "cap-9"); got == nil {
		t.Fatal("committed event not visible")
	}
}
