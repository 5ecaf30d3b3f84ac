package repository

import (
	"context"
	"sort"
	"time"

	"field-capture-ingest/internal/domainevent/domain"
	"field-capture-ingest/internal/storage/memory"
)

// NewMemoryTable creates the domain_event table on store.
func NewMemoryTable(store *memory.Store) *memory.Table[domain.DomainEvent] {
	return memory.NewTable[domain.DomainEvent](store, "domain_event")
}

// MemoryRepository stores domain events in a memory table.
type MemoryRepository struct {
	table   *memory.Table[domain.DomainEvent]
	session *memory.Session
}

// NewMemoryRepository returns a repository over table that reads and writes through session.
func NewMemoryRepository(table *memory.Table[domain.DomainEvent], session *memory.Session) *MemoryRepository {
	return &MemoryRepository{table: table, session: session}
}

// Add stages a copy of e. Returns storage.ErrConstraintViolation when the id is taken.
func (r *MemoryRepository) Add(ctx context.Context, e *domain.DomainEvent) error {
	stored := *e
	stored.Payload = append([]byte(nil), e.Payload...)
	return r.table.Insert(ctx, r.session, stored.ID, stored)
}

// GetByPayloadID returns the oldest event whose payload id is id, or nil if none exists.
func (r *MemoryRepository) GetByPayloadID(ctx context.Context, id string) (*domain.DomainEvent, error) {
	rows, err := r.table.Select(ctx, r.session, func(e domain.DomainEvent) bool {
		pid, err := domain.PayloadID(e.Payload)
		return err == nil && pid == id
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	sortEvents(rows)
	return &rows[0], nil
}

// MarkSent sets the event status to sent at at.
func (r *MemoryRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	return r.table.Update(ctx, r.session, id, func(e *domain.DomainEvent) {
		e.Status = domain.StatusSent
		e.UpdatedAt = at.UTC()
	})
}

// ListPending returns up to limit pending events created before olderThan, oldest first.
func (r *MemoryRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.DomainEvent, error) {
	rows, err := r.table.Select(ctx, r.session, func(e domain.DomainEvent) bool {
		return e.Status == domain.StatusPending && e.CreatedAt.Before(olderThan)
	})
	if err != nil {
		return nil, err
	}
	sortEvents(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return pointers(rows), nil
}

// GetByFilter returns events matching f ordered by creation time.
func (r *MemoryRepository) GetByFilter(ctx context.Context, f Filter) ([]*domain.DomainEvent, error) {
	rows, err := r.table.Select(ctx, r.session, func(e domain.DomainEvent) bool { return f.match(&e) })
	if err != nil {
		return nil, err
	}
	sortEvents(rows)
	return pointers(rows), nil
}

func sortEvents(rows []domain.DomainEvent) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
}

func pointers(rows []domain.DomainEvent) []*domain.DomainEvent {
	out := make([]*domain.DomainEvent, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
