package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Query when no row matches the id.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned by Insert when the id is already stored.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrValidation is returned for malformed input: a missing id, a bad
	// table name, or a wrong ClearTable token.
	ErrValidation = errors.New("validation failed")

	// ErrTransaction marks failures surfaced by Transact.
	ErrTransaction = errors.New("transaction failed")

	// ErrConnection marks failures to open or use the engine connection.
	ErrConnection = errors.New("connection error")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = fmt.Errorf("%w: store is closed", ErrConnection)

	// ErrUnsupported is returned by backends that cannot run an operation.
	ErrUnsupported = errors.New("operation not supported")
)

// TxError wraps the error that aborted a transaction. errors.Is matches both
// ErrTransaction and the original error.
type TxError struct {
	Err error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction rolled back: %v", e.Err)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

func (e *TxError) Is(target error) bool {
	return target == ErrTransaction
}

// Validationf returns an ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
