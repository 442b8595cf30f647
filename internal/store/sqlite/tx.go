package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kvstore/internal/store"
)

// Transact runs fn inside one SQLite transaction and commits if it returns
// nil. Any error or panic from fn rolls back every statement it issued.
//
// fn must only use tx. The store's single connection belongs to the
// transaction until Transact returns, so calling s from fn blocks forever.
func (s *Store) Transact(ctx context.Context, fn store.TxFunc) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", dbErr(err))
	}
	defer sqlTx.Rollback() // No-op if committed

	tx := &ops{s: s, q: sqlTx, created: map[string]struct{}{}}
	if err := fn(ctx, tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		s.logger.Debug("transaction rolled back", "error", err)
		return &store.TxError{Err: err}
	}

	if err := sqlTx.Commit(); err != nil {
		return &store.TxError{Err: fmt.Errorf("commit: %w", dbErr(err))}
	}
	for table := range tx.created {
		s.ensured.Store(table, struct{}{})
	}
	return nil
}
