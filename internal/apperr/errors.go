// Package apperr holds the error taxonomy shared by the store, the selection
// controller and the surfaces on top of them.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrStorage  = errors.New("storage error")
	ErrPartial  = errors.New("partial failure")
	ErrConflict = errors.New("conflict")
)

// StorageError reports that the persisted document could not be read,
// parsed or written. The previously persisted document is left intact.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorage) match any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NotFoundError reports a position outside the current list.
type NotFoundError struct {
	Position int
	Count    int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("position %d not found (list has %d notes)", e.Position, e.Count)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PartialError summarizes a batch where some entries failed. Entries that
// succeeded stay committed.
type PartialError struct {
	Op     string
	Total  int
	Failed int
	Err    error // last underlying failure, if any
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s: %d of %d items failed", e.Op, e.Failed, e.Total)
}

func (e *PartialError) Unwrap() error { return e.Err }

func (e *PartialError) Is(target error) bool { return target == ErrPartial }
