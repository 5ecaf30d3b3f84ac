// Package storage defines the transaction boundary shared by every repository: a Session owns at
// most one open transaction over a single storage area (primary or legacy).
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTransactionState is the parent of every transaction misuse error. It signals a programming
	// error and is fatal to the request.
	ErrTransactionState = errors.New("transaction state error")
	// ErrAlreadyInTransaction is returned by Begin when a transaction is already open.
	ErrAlreadyInTransaction = fmt.Errorf("%w: transaction already in progress", ErrTransactionState)
	// ErrNoTransaction is returned by Commit and Rollback when no transaction is open.
	ErrNoTransaction = fmt.Errorf("%w: no transaction in progress", ErrTransactionState)
	// ErrConstraintViolation is returned by create operations on uniqueness conflicts.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrNotFound is returned by update operations whose target row does not exist.
	// Lookups never return it; they return empty results instead.
	ErrNotFound = errors.New("not found")
)

// Session is the transaction boundary over one storage area. A Session is private to one
// in-flight request and must not be shared across goroutines.
type Session interface {
	// Begin opens a transaction. Returns ErrAlreadyInTransaction if one is open.
	Begin(ctx context.Context) error
	// Commit persists every write issued since Begin. Returns ErrNoTransaction if none is open.
	Commit(ctx context.Context) error
	// Rollback discards every write issued since Begin. Returns ErrNoTransaction if none is open.
	Rollback(ctx context.Context) error
	// InProgress reports whether a transaction is open.
	InProgress() bool
}
