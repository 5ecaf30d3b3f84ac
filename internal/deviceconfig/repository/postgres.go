package repository

import (
	"context"
	"fmt"
	"strings"

	"field-capture-ingest/internal/deviceconfig/domain"
	"field-capture-ingest/internal/storage"
)

const columns = `id, device_identifier, brand, model, device, serial, hardware, manufacturer,
	app_build, app_version, os_version, sdk_version, logged_at, created_at`

// PostgresRepository stores device configurations in the primary database.
type PostgresRepository struct {
	session *storage.SQLSession
}

// NewPostgresRepository returns a device configuration repository bound to session.
func NewPostgresRepository(session *storage.SQLSession) *PostgresRepository {
	return &PostgresRepository{session: session}
}

// GetByFilter returns configurations matching f ordered by creation time.
func (r *PostgresRepository) GetByFilter(ctx context.Context, f Filter) ([]*domain.DeviceConfiguration, error) {
	var (
		where []string
		args  []any
	)
	if f.ID != "" {
		args = append(args, f.ID)
		where = append(where, fmt.Sprintf("id = $%d", len(args)))
	}
	if f.DeviceIdentifier != "" {
		args = append(args, f.DeviceIdentifier)
		where = append(where, fmt.Sprintf("device_identifier = $%d", len(args)))
	}
	q := "SELECT " + columns + " FROM device_configuration"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, id"

	rows, err := r.session.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make([]*domain.DeviceConfiguration, 0)
	for rows.Next() {
		d, err := scan(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Create inserts d and returns the stored row.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.DeviceConfiguration) (*domain.DeviceConfiguration, error) {
	row := r.session.DB().QueryRowContext(ctx, `
INSERT INTO device_configuration (`+columns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING `+columns,
		d.ID, d.DeviceIdentifier, d.Brand, d.Model, d.Device, d.Serial, d.Hardware, d.Manufacturer,
		d.AppBuild, d.AppVersion, d.OSVersion, d.SDKVersion, d.LoggedAt, d.CreatedAt,
	)
	created, err := scan(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("create device configuration %s: %w", d.ID, storage.MapError(err))
	}
	return created, nil
}

func scan(fn func(dest ...any) error) (*domain.DeviceConfiguration, error) {
	var d domain.DeviceConfiguration
	if err := fn(
		&d.ID, &d.DeviceIdentifier, &d.Brand, &d.Model, &d.Device, &d.Serial, &d.Hardware, &d.Manufacturer,
		&d.AppBuild, &d.AppVersion, &d.OSVersion, &d.SDKVersion, &d.LoggedAt, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	d.LoggedAt = d.LoggedAt.UTC()
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}
