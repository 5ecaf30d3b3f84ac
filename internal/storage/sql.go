package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// DBTX is the subset of *sql.DB and *sql.Tx used by SQL repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLSession implements Session over a database/sql pool. Outside a transaction statements run in
// autocommit mode against the pool.
type SQLSession struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSQLSession returns a session bound to db. Create one per request.
func NewSQLSession(db *sql.DB) *SQLSession {
	return &SQLSession{db: db}
}

// Begin opens a transaction on the pool.
func (s *SQLSession) Begin(ctx context.Context) error {
	if s.tx != nil {
		return ErrAlreadyInTransaction
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the open transaction. The session leaves the transaction even when commit fails.
func (s *SQLSession) Commit(ctx context.Context) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", MapError(err))
	}
	return nil
}

// Rollback aborts the open transaction.
func (s *SQLSession) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// InProgress reports whether a transaction is open.
func (s *SQLSession) InProgress() bool {
	return s.tx != nil
}

// DB returns the open transaction, or the pool when no transaction is open.
func (s *SQLSession) DB() DBTX {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// MapError converts driver errors into storage errors. Unique violations become
// ErrConstraintViolation; other errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrConstraintViolation, pgErr.ConstraintName)
	}
	return err
}
