package store

import (
	"errors"
	"fmt"
)

// ErrVersionConflict is returned when another writer appended to the same
// aggregate stream between our read and our write.
var ErrVersionConflict = errors.New("event version conflict")

// PersistenceError reports that a backing store could not be reached or
// rejected an operation. It is fatal for the current operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// wrapPersistence wraps err as a PersistenceError unless it is already one or
// is a version conflict.
func wrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrVersionConflict) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistence reports whether err is a PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
