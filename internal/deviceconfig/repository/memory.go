package repository

import (
	"context"
	"sort"

	"field-capture-ingest/internal/deviceconfig/domain"
	"field-capture-ingest/internal/storage/memory"
)

// NewMemoryTable creates the device_configuration table on store.
func NewMemoryTable(store *memory.Store) *memory.Table[domain.DeviceConfiguration] {
	return memory.NewTable[domain.DeviceConfiguration](store, "device_configuration")
}

// MemoryRepository stores device configurations in a memory table.
type MemoryRepository struct {
	table   *memory.Table[domain.DeviceConfiguration]
	session *memory.Session
}

// NewMemoryRepository returns a repository over table that reads and writes through session.
func NewMemoryRepository(table *memory.Table[domain.DeviceConfiguration], session *memory.Session) *MemoryRepository {
	return &MemoryRepository{table: table, session: session}
}

// GetByFilter returns configurations matching f, including rows staged by the session.
func (r *MemoryRepository) GetByFilter(ctx context.Context, f Filter) ([]*domain.DeviceConfiguration, error) {
	rows, err := r.table.Select(ctx, r.session, func(d domain.DeviceConfiguration) bool { return f.match(&d) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	out := make([]*domain.DeviceConfiguration, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

// Create stores d. Returns storage.ErrConstraintViolation when the id is taken.
func (r *MemoryRepository) Create(ctx context.Context, d *domain.DeviceConfiguration) (*domain.DeviceConfiguration, error) {
	stored := *d
	if err := r.table.Insert(ctx, r.session, stored.ID, stored); err != nil {
		return nil, err
	}
	return &stored, nil
}
