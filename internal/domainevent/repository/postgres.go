package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"field-capture-ingest/internal/domainevent/domain"
	"field-capture-ingest/internal/storage"
)

const eventColumns = "id, type, payload, status, created_at, updated_at"

// PostgresRepository stores domain events in the primary database through a storage session.
type PostgresRepository struct {
	session *storage.SQLSession
}

// NewPostgresRepository returns a domain event repository bound to session.
func NewPostgresRepository(session *storage.SQLSession) *PostgresRepository {
	return &PostgresRepository{session: session}
}

// Add inserts e. The payload is stored as jsonb.
func (r *PostgresRepository) Add(ctx context.Context, e *domain.DomainEvent) error {
	_, err := r.session.DB().ExecContext(ctx, `
INSERT INTO domain_event (id, type, payload, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Type, []byte(e.Payload), string(e.Status), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("add domain event %s: %w", e.ID, storage.MapError(err))
	}
	return nil
}

// GetByPayloadID returns the oldest event whose payload ->> 'id' equals id, or nil if none exists.
func (r *PostgresRepository) GetByPayloadID(ctx context.Context, id string) (*domain.DomainEvent, error) {
	row := r.session.DB().QueryRowContext(ctx, `
SELECT `+eventColumns+` FROM domain_event
WHERE payload ->> 'id' = $1
ORDER BY created_at LIMIT 1`, id)
	e, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// MarkSent sets the event status to sent at at. Returns storage.ErrNotFound for an unknown id.
func (r *PostgresRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	res, err := r.session.DB().ExecContext(ctx, `
UPDATE domain_event SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(domain.StatusSent), at.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("domain event %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ListPending returns up to limit pending events created before olderThan, oldest first.
func (r *PostgresRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.DomainEvent, error) {
	rows, err := r.session.DB().QueryContext(ctx, `
SELECT `+eventColumns+` FROM domain_event
WHERE status = $1 AND created_at < $2
ORDER BY created_at LIMIT $3`, string(domain.StatusPending), olderThan.UTC(), limit)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// GetByFilter returns events matching f ordered by creation time.
func (r *PostgresRepository) GetByFilter(ctx context.Context, f Filter) ([]*domain.DomainEvent, error) {
	var (
		where []string
		args  []any
	)
	if f.ID != "" {
		args = append(args, f.ID)
		where = append(where, fmt.Sprintf("id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	q := "SELECT " + eventColumns + " FROM domain_event"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at"
	rows, err := r.session.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]*domain.DomainEvent, error) {
	defer func() { _ = rows.Close() }()
	out := make([]*domain.DomainEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEvent(scan func(dest ...any) error) (*domain.DomainEvent, error) {
	var (
		e       domain.DomainEvent
		payload []byte
		status  string
	)
	if err := scan(&e.ID, &e.Type, &payload, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Payload = payload
	e.Status = domain.Status(status)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}
