package repository

import (
	"context"
	"errors"
	"testing"

	"field-capture-ingest/internal/legacy/domain"
	"field-capture-ingest/internal/storage"
	"field-capture-ingest/internal/storage/memory"
)

func TestMemoryEntityRepository_CreateAssignsIDs(t *testing.T) {
	ctx := context.Background()
	tables := NewMemoryTables(memory.NewStore())
	repo := NewMemoryEntityRepository(tables, tables.Store.NewSession())

	first, err := repo.Create(ctx, &domain.Entity{UUID: "u1", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := repo.Create(ctx, &domain.Entity{UUID: "u2", SessionID: "s2"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.ID == 0 || second.ID <= first.ID {
		t.Fatalf("ids = %d, %d; want increasing non-zero", first.ID, second.ID)
	}

	got, err := repo.GetByFilter(ctx, EntityFilter{ID: second.ID})
	if err != nil {
		t.Fatalf("GetByFilter: %v", err)
	}
	if len(got) != 1 || got[0].UUID != "u2" {
		t.Fatalf("GetByFilter(id) = %+v", got)
	}
	got, err = repo.GetByFilter(ctx, EntityFilter{UUID: "u1", SessionID: "s1"})
	if err != nil {
		t.Fatalf("GetByFilter: %v", err)
	}
	if len(got) != 1 || got[0].ID != first.ID {
		t.Fatalf("GetByFilter(uuid) = %+v", got)
	}
}

func TestMemoryEntityRepository_DuplicateUUID(t *testing.T) {
	ctx := context.Background()
	tables := NewMemoryTables(memory.NewStore())
	repo := NewMemoryEntityRepository(tables, tables.Store.NewSession())

	if _, err := repo.Create(ctx, &domain.Entity{UUID: "u1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := repo.Create(ctx, &domain.Entity{UUID: "u1"})
	if !errors.Is(err, storage.ErrConstraintViolation) {
		t.Fatalf("duplicate uuid err = %v, want ErrConstraintViolation", err)
	}
}

func TestMemoryAttributeRepository_OrderedByPosition(t *testing.T) {
	ctx := context.Background()
	tables := NewMemoryTables(memory.NewStore())
	session := tables.Store.NewSession()
	repo := NewMemoryAttributeRepository(tables, session)

	if err := session.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, a := range []domain.Attribute{
		{EntityID: 7, Position: 2, Key: "c"},
		{EntityID: 7, Position: 0, Key: "a"},
		{EntityID: 8, Position: 0, Key: "other"},
		{EntityID: 7, Position: 1, Key: "b"},
	} {
		if _, err := repo.Create(ctx, &a); err != nil {
			t.Fatalf("Create %s: %v", a.Key, err)
		}
	}

	staged, err := repo.GetByFilter(ctx, AttributeFilter{EntityID: 7})
	if err != nil {
		t.Fatalf("GetByFilter: %v", err)
	}
	if len(staged) != 3 {
		t.Fatalf("staged attributes = %d, want 3", len(staged))
	}
	if err := session.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := NewMemoryAttributeRepository(tables, nil).GetByFilter(ctx, AttributeFilter{EntityID: 7})
	if err != nil {
		t.Fatalf("GetByFilter: %v", err)
	}
	var keys string
	for _, a := range got {
		keys += a.Key
	}
	if keys != "abc" {
		t.Fatalf("keys = %q, want abc", keys)
	}
}
