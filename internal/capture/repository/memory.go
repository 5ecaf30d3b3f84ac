package repository

import (
	"context"
	"sort"

	"field-capture-ingest/internal/capture/domain"
	"field-capture-ingest/internal/storage/memory"
)

// MemoryRepository is a capture repository over the in-memory storage backend.
type MemoryRepository struct {
	table   *memory.Table[domain.Capture]
	session *memory.Session
}

// NewMemoryTable returns the raw_capture table on store.
func NewMemoryTable(store *memory.Store) *memory.Table[domain.Capture] {
	return memory.NewTable[domain.Capture](store, "raw_capture")
}

// NewMemoryRepository returns a capture repository bound to session.
func NewMemoryRepository(table *memory.Table[domain.Capture], session *memory.Session) *MemoryRepository {
	return &MemoryRepository{table: table, session: session}
}

// GetByFilter returns captures matching f ordered by creation time.
func (r *MemoryRepository) GetByFilter(ctx context.Context, f Filter) ([]*domain.Capture, error) {
	rows, err := r.table.Select(ctx, r.session, func(c domain.Capture) bool { return f.match(&c) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	if f.Offset > 0 {
		if f.Offset >= len(rows) {
			rows = rows[:0]
		} else {
			rows = rows[f.Offset:]
		}
	}
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	out := make([]*domain.Capture, len(rows))
	for i := range rows {
		c := rows[i]
		out[i] = &c
	}
	return out, nil
}

// Create stages c on the session.
func (r *MemoryRepository) Create(ctx context.Context, c *domain.Capture) (*domain.Capture, error) {
	stored := *c
	if err := r.table.Insert(ctx, r.session, stored.ID, stored); err != nil {
		return nil, err
	}
	return &stored, nil
}
