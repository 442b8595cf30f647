package store

import "context"

// ConfirmClear is the safety literal ClearTable requires before deleting rows.
const ConfirmClear = "CONFIRM"

// Ops is the set of record operations available both on a Store and inside a
// transaction.
type Ops interface {
	// Insert persists rec under its id. Fails with ErrAlreadyExists if the id
	// is already present.
	Insert(ctx context.Context, table string, rec Record) error

	// Update overwrites the payload stored for rec's id. A missing id is a
	// no-op, not an error.
	Update(ctx context.Context, table string, rec Record) error

	// Delete removes the row for rec's id. A missing id is a no-op.
	Delete(ctx context.Context, table string, rec Record) error

	// Query returns the record stored under id with the id re-attached.
	// Fails with ErrNotFound if no row matches.
	Query(ctx context.Context, table, id string) (Record, error)

	// Exists reports whether a row with id is present.
	Exists(ctx context.Context, table, id string) (bool, error)

	// ExecRaw sends an engine-native statement as-is. No parameter binding is
	// offered: the caller owns correctness and injection safety.
	ExecRaw(ctx context.Context, statement string) (*RawResult, error)

	// ClearTable deletes every row in table. token must equal ConfirmClear,
	// otherwise ErrValidation is returned and nothing is deleted.
	ClearTable(ctx context.Context, table, token string) error
}

// Tx is the transaction-scoped handle passed to a unit of work.
type Tx interface {
	Ops
}

// TxFunc is a unit of work. Returning an error rolls the transaction back.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is a process-wide storage handle. Construct one at startup and pass
// it to whatever needs storage.
type Store interface {
	Ops

	// Transact runs fn inside one atomic transaction. If fn returns an error
	// (or panics) every operation it performed is rolled back.
	Transact(ctx context.Context, fn TxFunc) error

	// Tables lists the key-value tables currently present, sorted by name.
	Tables(ctx context.Context) ([]string, error)

	// Close disposes the store. Any later call fails with ErrClosed.
	Close() error
}

// RawResult is the tabular output of ExecRaw.
type RawResult struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	RowsAffected int64    `json:"rows_affected"`
}

// InTx runs fn in a transaction on s and returns its result. The zero value
// of T is returned whenever the transaction does not commit.
func InTx[T any](ctx context.Context, s Store, fn func(ctx context.Context, tx Tx) (T, error)) (T, error) {
	var out T
	err := s.Transact(ctx, func(ctx context.Context, tx Tx) error {
		v, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
