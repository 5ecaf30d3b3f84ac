package repository

import (
	"context"

	"field-capture-ingest/internal/sourcesession/domain"
	"field-capture-ingest/internal/storage/memory"
)

// NewMemoryTable creates the session table on store.
func NewMemoryTable(store *memory.Store) *memory.Table[domain.Session] {
	return memory.NewTable[domain.Session](store, "session")
}

// MemoryRepository stores source sessions in a memory table.
type MemoryRepository struct {
	table   *memory.Table[domain.Session]
	session *memory.Session
}

// NewMemoryRepository returns a repository over table that reads and writes through session.
func NewMemoryRepository(table *memory.Table[domain.Session], session *memory.Session) *MemoryRepository {
	return &MemoryRepository{table: table, session: session}
}

// GetByID returns the session for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	rows, err := r.table.Select(ctx, r.session, func(s domain.Session) bool { return s.ID == id })
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// Create stores s. Returns storage.ErrConstraintViolation when the id is taken.
func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	stored := *s
	if err := r.table.Insert(ctx, r.session, stored.ID, stored); err != nil {
		return nil, err
	}
	return &stored, nil
}
