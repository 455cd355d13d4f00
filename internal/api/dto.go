package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/jotlist/internal/noteservice"
	"github.com/starford/jotlist/internal/selection"
)

const (
	maxTitleLen = 1 << 10
	maxTextLen  = 1 << 18
)

// NoteRequest is the request body for inserting or replacing a note. Both
// fields may be empty.
type NoteRequest struct {
	Title string `json:"title" example:"Groceries"`
	Text  string `json:"text" example:"milk, eggs"`
}

// Validate implements validation.Validatable.
func (r *NoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.RuneLength(0, maxTitleLen)),
		validation.Field(&r.Text, validation.RuneLength(0, maxTextLen)),
	)
}

// MoveRequest is the request body for moving a note or a drag step.
type MoveRequest struct {
	From *int `json:"from" example:"3" validate:"required"`
	To   *int `json:"to" example:"0" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *MoveRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, validation.NotNil, validation.Min(0)),
		validation.Field(&r.To, validation.NotNil, validation.Min(0)),
	)
}

// RemoveRequest is the request body for a batch removal.
type RemoveRequest struct {
	Positions []int `json:"positions" example:"0,2" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *RemoveRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Positions, validation.Required, validation.Each(validation.Min(0))),
	)
}

// NoteView is a single note (aliased from the domain layer).
type NoteView = noteservice.NoteView

// NoteListResponse is the whole list (aliased from the domain layer).
type NoteListResponse = noteservice.ListResult

// SelectionState is the selection mode snapshot (aliased from the domain layer).
type SelectionState = noteservice.SelectionState

// ReplaceResponse is returned by PUT /notes/{pos}. Saved is false when the
// content was unchanged.
type ReplaceResponse struct {
	Note  NoteView `json:"note" validate:"required"`
	Saved bool     `json:"saved" validate:"required"`
}

// BatchResponse reports a batch removal. Error is set when some positions
// could not be removed.
type BatchResponse struct {
	selection.BatchResult
	Error string `json:"error,omitempty"`
}

// UndoResponse reports an undo pass. Error is set when restoring stopped
// early; the remaining entries can be retried.
type UndoResponse struct {
	selection.UndoResult
	Error string `json:"error,omitempty"`
}
