// Package repository defines error types shared by the data-access layer.
// Handlers distinguish store failures from caller mistakes with errors.As
// on *StoreError; a missing row is never an error.
package repository

import (
	"errors"
	"fmt"
)

// ErrInvalidTable is returned by NewDiagramRepo when the configured table
// name is not a plain SQL identifier.
var ErrInvalidTable = errors.New("invalid table name")

// errNoRow marks an absent row inside a transaction so the caller can turn
// it into a nil result after rollback.
var errNoRow = errors.New("no row")

// StoreError wraps any connection or statement failure against the
// database.  Op names the repository operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("diagram store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err carries a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
