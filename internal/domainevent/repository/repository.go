package repository

import (
	"context"
	"time"

	"field-capture-ingest/internal/domainevent/domain"
)

// Filter selects events by equality on every non-zero field.
type Filter struct {
	ID     string
	Type   string
	Status domain.Status
}

// Repository defines persistence for domain events.
type Repository interface {
	// Add stores a new event.
	Add(ctx context.Context, e *domain.DomainEvent) error
	// GetByPayloadID returns the event whose payload "id" equals id, or nil, nil when none exists.
	// When several events describe the same entity the oldest is returned.
	GetByPayloadID(ctx context.Context, id string) (*domain.DomainEvent, error)
	// MarkSent sets the event's status to sent. Returns storage.ErrNotFound for an unknown id.
	MarkSent(ctx context.Context, id string, at time.Time) error
	// ListPending returns up to limit pending events created before olderThan, oldest first.
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.DomainEvent, error)
	GetByFilter(ctx context.Context, f Filter) ([]*domain.DomainEvent, error)
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)

func (f Filter) match(e *domain.DomainEvent) bool {
	if f.ID != "" && e.ID != f.ID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	return true
}
