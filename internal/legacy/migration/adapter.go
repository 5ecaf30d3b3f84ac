// Package migration writes new captures into the legacy store so older consumers keep seeing them.
package migration

import (
	"context"
	"fmt"
	"time"

	"field-capture-ingest/internal/legacy/domain"
	"field-capture-ingest/internal/legacy/repository"
)

// Unit is the set of legacy repositories bound to one storage session.
type Unit struct {
	Entities   repository.EntityRepository
	Attributes repository.AttributeRepository
}

// Adapter creates legacy entities. It runs inside the caller's transaction and never commits or
// rolls back.
type Adapter struct {
	now func() time.Time
}

// NewAdapter returns an Adapter using the wall clock.
func NewAdapter() *Adapter {
	return &Adapter{now: time.Now}
}

// Create derives the legacy entity from in and persists it with its ordered attributes through
// unit. The returned entity carries the store-assigned ID.
func (a *Adapter) Create(ctx context.Context, unit Unit, in domain.Input) (*domain.Entity, error) {
	if in.Capture == nil {
		return nil, fmt.Errorf("legacy entity: missing capture")
	}
	entity, attrs := domain.Build(in, a.now())
	created, err := unit.Entities.Create(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("legacy entity: %w", err)
	}
	for i := range attrs {
		attrs[i].EntityID = created.ID
		if _, err := unit.Attributes.Create(ctx, &attrs[i]); err != nil {
			return nil, fmt.Errorf("legacy entity %d attribute %q: %w", created.ID, attrs[i].Key, err)
		}
	}
	return created, nil
}
