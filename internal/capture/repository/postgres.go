package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"field-capture-ingest/internal/capture/domain"
	"field-capture-ingest/internal/storage"
)

const captureColumns = `id, reference_id, session_id, image_url, lat, lon, gps_accuracy,
	abs_step_count, delta_step_count, rotation_matrix, note, extra_attributes, captured_at, created_at`

// PostgresRepository stores captures in the primary database through a storage session.
type PostgresRepository struct {
	session *storage.SQLSession
}

// NewPostgresRepository returns a capture repository bound to session.
func NewPostgresRepository(session *storage.SQLSession) *PostgresRepository {
	return &PostgresRepository{session: session}
}

// GetByFilter returns captures matching f. Returns (nil, error) only on database errors.
func (r *PostgresRepository) GetByFilter(ctx context.Context, f Filter) ([]*domain.Capture, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ID != "" {
		add("id = $%d", f.ID)
	}
	if f.SessionID != "" {
		add("session_id = $%d", f.SessionID)
	}
	if f.ReferenceID != 0 {
		add("reference_id = $%d", f.ReferenceID)
	}
	q := "SELECT " + captureColumns + " FROM raw_capture"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.session.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make([]*domain.Capture, 0)
	for rows.Next() {
		c, err := scanCapture(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts c and returns the row as stored.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Capture) (*domain.Capture, error) {
	matrix, err := json.Marshal(nonNilInts(c.RotationMatrix))
	if err != nil {
		return nil, err
	}
	attrs, err := json.Marshal(toAttributeRows(c.ExtraAttributes))
	if err != nil {
		return nil, err
	}
	sessionID := sql.NullString{String: c.SessionID, Valid: c.SessionID != ""}
	row := r.session.DB().QueryRowContext(ctx, `
INSERT INTO raw_capture (`+captureColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING `+captureColumns,
		c.ID, c.ReferenceID, sessionID, c.ImageURL, c.Lat, c.Lon, c.GPSAccuracy,
		c.AbsStepCount, c.DeltaStepCount, matrix, c.Note, attrs, c.CapturedAt, c.CreatedAt,
	)
	created, err := scanCapture(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("create raw capture %s: %w", c.ID, storage.MapError(err))
	}
	return created, nil
}

type attributeRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func toAttributeRows(attrs []domain.ExtraAttribute) []attributeRow {
	out := make([]attributeRow, len(attrs))
	for i, a := range attrs {
		out[i] = attributeRow{Key: a.Key, Value: a.Value}
	}
	return out
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func scanCapture(scan func(dest ...any) error) (*domain.Capture, error) {
	var (
		c         domain.Capture
		sessionID sql.NullString
		matrix    []byte
		attrs     []byte
	)
	if err := scan(
		&c.ID, &c.ReferenceID, &sessionID, &c.ImageURL, &c.Lat, &c.Lon, &c.GPSAccuracy,
		&c.AbsStepCount, &c.DeltaStepCount, &matrix, &c.Note, &attrs, &c.CapturedAt, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	c.SessionID = sessionID.String
	if len(matrix) > 0 {
		if err := json.Unmarshal(matrix, &c.RotationMatrix); err != nil {
			return nil, fmt.Errorf("decode rotation_matrix: %w", err)
		}
	}
	if len(attrs) > 0 {
		var rows []attributeRow
		if err := json.Unmarshal(attrs, &rows); err != nil {
			return nil, fmt.Errorf("decode extra_attributes: %w", err)
		}
		for _, a := range rows {
			c.ExtraAttributes = append(c.ExtraAttributes, domain.ExtraAttribute{Key: a.Key, Value: a.Value})
		}
	}
	c.CapturedAt = c.CapturedAt.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
