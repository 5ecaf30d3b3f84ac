package repository

import (
	"context"
	"fmt"
	"strings"

	"field-capture-ingest/internal/legacy/domain"
	"field-capture-ingest/internal/storage"
)

const entityColumns = `id, uuid, session_id, device_identifier, grower_account_id, organization_id,
	image_url, lat, lon, gps_accuracy, note, time_created, time_updated`

// PostgresEntityRepository stores legacy entities in the legacy database.
type PostgresEntityRepository struct {
	session *storage.SQLSession
}

// NewPostgresEntityRepository returns a legacy entity repository bound to session.
func NewPostgresEntityRepository(session *storage.SQLSession) *PostgresEntityRepository {
	return &PostgresEntityRepository{session: session}
}

// GetByFilter returns entities matching f ordered by id.
func (r *PostgresEntityRepository) GetByFilter(ctx context.Context, f EntityFilter) ([]*domain.Entity, error) {
	var (
		where []string
		args  []any
	)
	if f.ID != 0 {
		args = append(args, f.ID)
		where = append(where, fmt.Sprintf("id = $%d", len(args)))
	}
	if f.UUID != "" {
		args = append(args, f.UUID)
		where = append(where, fmt.Sprintf("uuid = $%d", len(args)))
	}
	if f.SessionID != "" {
		args = append(args, f.SessionID)
		where = append(where, fmt.Sprintf("session_id = $%d", len(args)))
	}
	q := "SELECT " + entityColumns + " FROM legacy_entity"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"

	rows, err := r.session.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make([]*domain.Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Create inserts e; the id comes from the table's sequence.
func (r *PostgresEntityRepository) Create(ctx context.Context, e *domain.Entity) (*domain.Entity, error) {
	row := r.session.DB().QueryRowContext(ctx, `
INSERT INTO legacy_entity (uuid, session_id, device_identifier, grower_account_id, organization_id,
	image_url, lat, lon, gps_accuracy, note, time_created, time_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING `+entityColumns,
		e.UUID, e.SessionID, e.DeviceIdentifier, e.GrowerAccountID, e.OrganizationID,
		e.ImageURL, e.Lat, e.Lon, e.GPSAccuracy, e.Note, e.TimeCreated, e.TimeUpdated,
	)
	created, err := scanEntity(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("create legacy entity %s: %w", e.UUID, storage.MapError(err))
	}
	return created, nil
}

func scanEntity(scan func(dest ...any) error) (*domain.Entity, error) {
	var e domain.Entity
	if err := scan(
		&e.ID, &e.UUID, &e.SessionID, &e.DeviceIdentifier, &e.GrowerAccountID, &e.OrganizationID,
		&e.ImageURL, &e.Lat, &e.Lon, &e.GPSAccuracy, &e.Note, &e.TimeCreated, &e.TimeUpdated,
	); err != nil {
		return nil, err
	}
	e.TimeCreated = e.TimeCreated.UTC()
	e.TimeUpdated = e.TimeUpdated.UTC()
	return &e, nil
}

// PostgresAttributeRepository stores legacy entity attributes in the legacy database.
type PostgresAttributeRepository struct {
	session *storage.SQLSession
}

// NewPostgresAttributeRepository returns a legacy attribute repository bound to session.
func NewPostgresAttributeRepository(session *storage.SQLSession) *PostgresAttributeRepository {
	return &PostgresAttributeRepository{session: session}
}

// GetByFilter returns the attributes of f.EntityID ordered by position.
func (r *PostgresAttributeRepository) GetByFilter(ctx context.Context, f AttributeFilter) ([]*domain.Attribute, error) {
	rows, err := r.session.DB().QueryContext(ctx, `
SELECT entity_id, position, key, value FROM legacy_entity_attribute
WHERE entity_id = $1 ORDER BY position`, f.EntityID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make([]*domain.Attribute, 0)
	for rows.Next() {
		var a domain.Attribute
		if err := rows.Scan(&a.EntityID, &a.Position, &a.Key, &a.Value); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Create inserts a and returns the stored row.
func (r *PostgresAttributeRepository) Create(ctx context.Context, a *domain.Attribute) (*domain.Attribute, error) {
	_, err := r.session.DB().ExecContext(ctx, `
INSERT INTO legacy_entity_attribute (entity_id, position, key, value) VALUES ($1, $2, $3, $4)`,
		a.EntityID, a.Position, a.Key, a.Value)
	if err != nil {
		return nil, fmt.Errorf("create legacy attribute %d/%s: %w", a.EntityID, a.Key, storage.MapError(err))
	}
	created := *a
	return &created, nil
}
