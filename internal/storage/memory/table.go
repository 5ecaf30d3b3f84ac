package memory

import (
	"context"
	"fmt"

	"field-capture-ingest/internal/storage"
)

// Table holds committed rows of type T keyed by primary key, in insertion order.
type Table[T any] struct {
	store *Store
	name  string
	rows  map[string]T
	order []string
}

// NewTable returns an empty table on store.
func NewTable[T any](store *Store, name string) *Table[T] {
	return &Table[T]{store: store, name: name, rows: make(map[string]T)}
}

// Insert adds v under key. Inside a transaction the row is staged on the session and becomes
// visible to other sessions on Commit; outside one it is applied immediately.
// Returns storage.ErrConstraintViolation when key already exists.
func (t *Table[T]) Insert(ctx context.Context, s *Session, key string, v T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, ok := t.rows[key]; ok || s.stagedInsert(t.name, key) {
		return t.conflict(key)
	}
	o := op{
		kind:  opInsert,
		table: t.name,
		key:   key,
		value: v,
		check: func() error {
			if _, ok := t.rows[key]; ok {
				return t.conflict(key)
			}
			return nil
		},
		apply: func() {
			t.rows[key] = v
			t.order = append(t.order, key)
		},
	}
	if !s.open {
		o.apply()
		return nil
	}
	s.ops = append(s.ops, o)
	return nil
}

// Update applies fn to the row stored under key. Returns storage.ErrNotFound when the row does
// not exist (committed or staged by s).
func (t *Table[T]) Update(ctx context.Context, s *Session, key string, fn func(*T)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	exists := func() bool {
		_, ok := t.rows[key]
		return ok || s.stagedInsert(t.name, key)
	}
	if !exists() {
		return fmt.Errorf("%s %q: %w", t.name, key, storage.ErrNotFound)
	}
	o := op{
		kind:  opUpdate,
		table: t.name,
		key:   key,
		check: func() error {
			if !exists() {
				return fmt.Errorf("%s %q: %w", t.name, key, storage.ErrNotFound)
			}
			return nil
		},
		apply: func() {
			row := t.rows[key]
			fn(&row)
			t.rows[key] = row
		},
	}
	if !s.open {
		o.apply()
		return nil
	}
	s.ops = append(s.ops, o)
	return nil
}

// Select returns committed rows matching match in insertion order, followed by rows s has
// staged. s may be nil to read committed rows only.
func (t *Table[T]) Select(ctx context.Context, s *Session, match func(T) bool) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	out := make([]T, 0)
	for _, k := range t.order {
		if row := t.rows[k]; match(row) {
			out = append(out, row)
		}
	}
	if s != nil {
		for _, o := range s.ops {
			if o.kind != opInsert || o.table != t.name {
				continue
			}
			if row := o.value.(T); match(row) {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

// Len returns the number of committed rows.
func (t *Table[T]) Len() int {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return len(t.rows)
}

func (t *Table[T]) conflict(key string) error {
	return fmt.Errorf("%w: %s key %q already exists", storage.ErrConstraintViolation, t.name, key)
}
