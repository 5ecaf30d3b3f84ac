package repository

import (
	"context"

	"field-capture-ingest/internal/capture/domain"
)

// Filter selects captures by equality on every non-zero field. Limit and Offset page the result;
// a zero Limit returns every match.
type Filter struct {
	ID          string
	SessionID   string
	ReferenceID int64
	Limit       int
	Offset      int
}

// Repository defines persistence for captures. Implementations are bound to one storage session.
type Repository interface {
	// GetByFilter returns captures matching f ordered by creation time. It returns an empty slice,
	// not an error, when nothing matches.
	GetByFilter(ctx context.Context, f Filter) ([]*domain.Capture, error)
	// Create stores c and returns the stored record. Returns storage.ErrConstraintViolation when
	// a capture with the same id exists.
	Create(ctx context.Context, c *domain.Capture) (*domain.Capture, error)
}

func (f Filter) match(c *domain.Capture) bool {
	if f.ID != "" && c.ID != f.ID {
		return false
	}
	if f.SessionID != "" && c.SessionID != f.SessionID {
		return false
	}
	if f.ReferenceID != 0 && c.ReferenceID != f.ReferenceID {
		return false
	}
	return true
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
