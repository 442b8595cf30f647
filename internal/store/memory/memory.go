// Package memory provides an in-process store.Store.
//
// Payloads are kept in their serialized form so reads go through the same
// JSON round trip as the SQLite backend. A sync.RWMutex guards all state;
// transactions hold the write lock, run against a copy of the tables and
// swap it in on commit.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/kvstore/internal/store"
)

// tables maps table name to id to serialized payload.
type tables map[string]map[string]string

func (t tables) clone() tables {
	out := make(tables, len(t))
	for name, rows := range t {
		out[name] = maps.Clone(rows)
	}
	return out
}

// Store is an in-memory store.Store.
type Store struct {
	mu     sync.RWMutex
	data   tables
	closed bool
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New returns an empty store with the given tables created.
func New(tableNames ...string) (*Store, error) {
	s := &Store{data: tables{}, logger: slog.Default()}
	for _, name := range tableNames {
		if err := store.ValidateTable(name); err != nil {
			return nil, err
		}
		s.data[name] = map[string]string{}
	}
	return s, nil
}

// WithLogger sets the logger used for clears and rollbacks.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Close disposes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

// Tables lists table names in order.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	return slices.Sorted(maps.Keys(s.data)), nil
}

func (s *Store) read(fn func(v *view) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return fn(&view{data: s.data, logger: s.logger})
}

func (s *Store) write(fn func(v *view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	return fn(&view{data: s.data, logger: s.logger})
}

func (s *Store) Insert(ctx context.Context, table string, rec store.Record) error {
	return s.write(func(v *view) error { return v.Insert(ctx, table, rec) })
}

func (s *Store) Update(ctx context.Context, table string, rec store.Record) error {
	return s.write(func(v *view) error { return v.Update(ctx, table, rec) })
}

func (s *Store) Delete(ctx context.Context, table string, rec store.Record) error {
	return s.write(func(v *view) error { return v.Delete(ctx, table, rec) })
}

func (s *Store) ClearTable(ctx context.Context, table, token string) error {
	return s.write(func(v *view) error { return v.ClearTable(ctx, table, token) })
}

func (s *Store) Query(ctx context.Context, table, id string) (store.Record, error) {
	var rec store.Record
	err := s.read(func(v *view) error {
		var err error
		rec, err = v.Query(ctx, table, id)
		return err
	})
	return rec, err
}

func (s *Store) Exists(ctx context.Context, table, id string) (bool, error) {
	var ok bool
	err := s.read(func(v *view) error {
		var err error
		ok, err = v.Exists(ctx, table, id)
		return err
	})
	return ok, err
}

// ExecRaw is not supported: there is no statement engine.
func (s *Store) ExecRaw(ctx context.Context, statement string) (*store.RawResult, error) {
	return nil, s.read(func(v *view) error {
		_, err := v.ExecRaw(ctx, statement)
		return err
	})
}

// Transact runs fn against a copy of the data and publishes the copy only if
// fn succeeds. Other callers block until the transaction finishes.
func (s *Store) Transact(ctx context.Context, fn store.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	snapshot := &view{data: s.data.clone(), logger: s.logger}
	if err := fn(ctx, snapshot); err != nil {
		s.logger.Debug("transaction rolled back", "error", err)
		return &store.TxError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &store.TxError{Err: fmt.Errorf("commit: %w", err)}
	}
	s.data = snapshot.data
	return nil
}
