package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestStorageErrorMatching(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("save: %w", &StorageError{Op: "write", Err: cause})

	if !errors.Is(err, ErrStorage) {
		t.Error("expected errors.Is(err, ErrStorage)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrapped")
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "write" {
		t.Errorf("errors.As failed: %v", se)
	}
}

func TestNotFoundErrorMatching(t *testing.T) {
	err := fmt.Errorf("get: %w", &NotFoundError{Position: 4, Count: 2})
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}
	if errors.Is(err, ErrStorage) {
		t.Error("NotFoundError must not match ErrStorage")
	}
	if got := err.Error(); got != "get: position 4 not found (list has 2 notes)" {
		t.Errorf("message = %q", got)
	}
}

func TestPartialErrorMessage(t *testing.T) {
	err := &PartialError{Op: "remove", Total: 3, Failed: 1}
	if err.Error() != "remove: 1 of 3 items failed" {
		t.Errorf("message = %q", err.Error())
	}
	if !errors.Is(err, ErrPartial) {
		t.Error("expected errors.Is(err, ErrPartial)")
	}
}

func TestPartialErrorUnwrapsCause(t *testing.T) {
	err := &PartialError{Op: "undo", Total: 2, Failed: 1, Err: &StorageError{Op: "write", Err: errors.New("io")}}
	if !errors.Is(err, ErrStorage) {
		t.Error("expected cause to match ErrStorage")
	}
}
