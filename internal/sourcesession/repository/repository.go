package repository

import (
	"context"

	"field-capture-ingest/internal/sourcesession/domain"
)

// Repository defines persistence for source sessions.
type Repository interface {
	// GetByID returns the session with id, or nil, nil when it does not exist.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) (*domain.Session, error)
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
