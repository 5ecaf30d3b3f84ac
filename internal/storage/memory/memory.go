// Package memory provides an in-process storage backend with real transaction semantics: writes
// issued inside a transaction are staged on the Session and applied atomically on Commit.
// It backs STORAGE_DRIVER=memory and the workflow tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"field-capture-ingest/internal/storage"
)

// Store is one storage area (primary or legacy). Tables created on the same Store share its lock,
// so a commit is atomic across all of them.
type Store struct {
	mu  sync.Mutex
	seq map[string]int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{seq: make(map[string]int64)}
}

// NextID returns the next value of the named sequence. Like a database sequence, values are not
// reused when the surrounding transaction rolls back.
func (st *Store) NextID(name string) int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.seq[name]++
	return st.seq[name]
}

// NewSession returns a session over the store.
func (st *Store) NewSession() *Session {
	return &Session{store: st}
}

type opKind int

const (
	opInsert opKind = iota
	opUpdate
)

type op struct {
	kind  opKind
	table string
	key   string
	value any
	// check and apply run with the store lock held.
	check func() error
	apply func()
}

// Session implements storage.Session over a Store.
type Session struct {
	store *Store
	open  bool
	ops   []op
}

var _ storage.Session = (*Session)(nil)

// Begin opens a transaction.
func (s *Session) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.open {
		return storage.ErrAlreadyInTransaction
	}
	s.open = true
	s.ops = nil
	return nil
}

// Commit validates every staged write against the committed state and applies them all, or none.
func (s *Session) Commit(ctx context.Context) error {
	if !s.open {
		return storage.ErrNoTransaction
	}
	ops := s.ops

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	// Checks may consult the session's staged inserts, so the transaction ends only after them.
	defer func() {
		s.open = false
		s.ops = nil
	}()
	for _, o := range ops {
		if err := o.check(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
	}
	for _, o := range ops {
		o.apply()
	}
	return nil
}

// Rollback discards every staged write.
func (s *Session) Rollback(ctx context.Context) error {
	if !s.open {
		return storage.ErrNoTransaction
	}
	s.open = false
	s.ops = nil
	return nil
}

// InProgress reports whether a transaction is open.
func (s *Session) InProgress() bool {
	return s.open
}

func (s *Session) stagedInsert(table, key string) bool {
	for _, o := range s.ops {
		if o.kind == opInsert && o.table == table && o.key == key {
			return true
		}
	}
	return false
}
