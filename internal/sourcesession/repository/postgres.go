package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"field-capture-ingest/internal/sourcesession/domain"
	"field-capture-ingest/internal/storage"
)

// PostgresRepository reads source sessions from the primary database.
type PostgresRepository struct {
	session *storage.SQLSession
}

// NewPostgresRepository returns a source session repository bound to session.
func NewPostgresRepository(session *storage.SQLSession) *PostgresRepository {
	return &PostgresRepository{session: session}
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.session.DB().QueryRowContext(ctx, `
SELECT id, device_configuration_id, grower_account_id, organization_id, created_at
FROM session WHERE id = $1`, id).
		Scan(&s.ID, &s.DeviceConfigurationID, &s.GrowerAccountID, &s.OrganizationID, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

// Create inserts s and returns the stored row.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	_, err := r.session.DB().ExecContext(ctx, `
INSERT INTO session (id, device_configuration_id, grower_account_id, organization_id, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.DeviceConfigurationID, s.GrowerAccountID, s.OrganizationID, s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", s.ID, storage.MapError(err))
	}
	created := *s
	return &created, nil
}
