package storage

import "fmt"

// Error wraps a read or write failure against the backing database so
// callers can distinguish persistence failures from domain errors.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
