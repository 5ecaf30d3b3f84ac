package repository

import (
	"context"
	"fmt"
	"sort"

	"field-capture-ingest/internal/legacy/domain"
	"field-capture-ingest/internal/storage/memory"
)

const entitySequence = "legacy_entity_id"

// MemoryTables are the legacy tables of one in-memory store.
type MemoryTables struct {
	Store      *memory.Store
	Entities   *memory.Table[domain.Entity]
	Attributes *memory.Table[domain.Attribute]
}

// NewMemoryTables creates the legacy tables on store. Entities are keyed by UUID, which carries
// the table's unique constraint.
func NewMemoryTables(store *memory.Store) *MemoryTables {
	return &MemoryTables{
		Store:      store,
		Entities:   memory.NewTable[domain.Entity](store, "legacy_entity"),
		Attributes: memory.NewTable[domain.Attribute](store, "legacy_entity_attribute"),
	}
}

// MemoryEntityRepository stores legacy entities in a memory table.
type MemoryEntityRepository struct {
	tables  *MemoryTables
	session *memory.Session
}

// NewMemoryEntityRepository returns an entity repository that writes through session.
func NewMemoryEntityRepository(tables *MemoryTables, session *memory.Session) *MemoryEntityRepository {
	return &MemoryEntityRepository{tables: tables, session: session}
}

// GetByFilter returns entities matching f, including rows staged by the session.
func (r *MemoryEntityRepository) GetByFilter(ctx context.Context, f EntityFilter) ([]*domain.Entity, error) {
	rows, err := r.tables.Entities.Select(ctx, r.session, func(e domain.Entity) bool { return f.match(&e) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	out := make([]*domain.Entity, len(rows))
	for i := range rows {
		e := rows[i]
		out[i] = &e
	}
	return out, nil
}

// Create assigns the next entity id and stores e.
func (r *MemoryEntityRepository) Create(ctx context.Context, e *domain.Entity) (*domain.Entity, error) {
	stored := *e
	stored.ID = r.tables.Store.NextID(entitySequence)
	if err := r.tables.Entities.Insert(ctx, r.session, stored.UUID, stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// MemoryAttributeRepository stores legacy entity attributes in a memory table.
type MemoryAttributeRepository struct {
	tables  *MemoryTables
	session *memory.Session
}

// NewMemoryAttributeRepository returns an attribute repository that writes through session.
func NewMemoryAttributeRepository(tables *MemoryTables, session *memory.Session) *MemoryAttributeRepository {
	return &MemoryAttributeRepository{tables: tables, session: session}
}

// GetByFilter returns attributes matching f ordered by position.
func (r *MemoryAttributeRepository) GetByFilter(ctx context.Context, f AttributeFilter) ([]*domain.Attribute, error) {
	rows, err := r.tables.Attributes.Select(ctx, r.session, func(a domain.Attribute) bool { return a.EntityID == f.EntityID })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	out := make([]*domain.Attribute, len(rows))
	for i := range rows {
		a := rows[i]
		out[i] = &a
	}
	return out, nil
}

// Create stores a. Returns storage.ErrConstraintViolation when the entity already has that position.
func (r *MemoryAttributeRepository) Create(ctx context.Context, a *domain.Attribute) (*domain.Attribute, error) {
	stored := *a
	key := fmt.Sprintf("%d/%d", stored.EntityID, stored.Position)
	if err := r.tables.Attributes.Insert(ctx, r.session, key, stored); err != nil {
		return nil, err
	}
	return &stored, nil
}
