package repository

import (
	"context"

	"field-capture-ingest/internal/deviceconfig/domain"
)

// Filter selects device configurations by equality on every non-zero field.
type Filter struct {
	ID               string
	DeviceIdentifier string
}

// Repository defines persistence for device configurations.
type Repository interface {
	// GetByFilter returns matches ordered by creation time, or an empty slice.
	GetByFilter(ctx context.Context, f Filter) ([]*domain.DeviceConfiguration, error)
	// Create returns storage.ErrConstraintViolation when the id exists.
	Create(ctx context.Context, d *domain.DeviceConfiguration) (*domain.DeviceConfiguration, error)
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)

func (f Filter) match(d *domain.DeviceConfiguration) bool {
	if f.ID != "" && d.ID != f.ID {
		return false
	}
	if f.DeviceIdentifier != "" && d.DeviceIdentifier != f.DeviceIdentifier {
		return false
	}
	return true
}
