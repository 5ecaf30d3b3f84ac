package repository

import (
	"context"

	"field-capture-ingest/internal/legacy/domain"
)

// EntityFilter selects legacy entities by equality on every non-zero field.
type EntityFilter struct {
	ID        int64
	UUID      string
	SessionID string
}

// AttributeFilter selects attributes of one entity.
type AttributeFilter struct {
	EntityID int64
}

// EntityRepository defines persistence for legacy entities.
type EntityRepository interface {
	GetByFilter(ctx context.Context, f EntityFilter) ([]*domain.Entity, error)
	// Create stores e, assigns its ID, and returns the stored record.
	Create(ctx context.Context, e *domain.Entity) (*domain.Entity, error)
}

// AttributeRepository defines persistence for legacy entity attributes.
type AttributeRepository interface {
	// GetByFilter returns attributes ordered by position.
	GetByFilter(ctx context.Context, f AttributeFilter) ([]*domain.Attribute, error)
	Create(ctx context.Context, a *domain.Attribute) (*domain.Attribute, error)
}

var (
	_ EntityRepository    = (*PostgresEntityRepository)(nil)
	_ EntityRepository    = (*MemoryEntityRepository)(nil)
	_ AttributeRepository = (*PostgresAttributeRepository)(nil)
	_ AttributeRepository = (*MemoryAttributeRepository)(nil)
)

func (f EntityFilter) match(e *domain.Entity) bool {
	if f.ID != 0 && e.ID != f.ID {
		return false
	}
	if f.UUID != "" && e.UUID != f.UUID {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	return true
}
