// Package models defines the domain types for jotlist.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Note is a single entry in the note list.
//
// Notes are values: the store hands out copies, and editing a note means
// building a new one and replacing the old one at its position.
type Note struct {
	Title    string
	Text     string
	EditedAt time.Time
}

// NewNote returns a note stamped with the current time.
func NewNote(title, text string) Note {
	return At(title, text, time.Now())
}

// At returns a note stamped with t, truncated to the millisecond precision
// used on disk.
func At(title, text string, t time.Time) Note {
	return Note{Title: title, Text: text, EditedAt: time.UnixMilli(t.UnixMilli())}
}

// Empty returns the blank note created by "add".
func Empty() Note {
	return NewNote("", "")
}

// IsBlank reports whether both title and text are empty.
func (n Note) IsBlank() bool {
	return n.Title == "" && n.Text == ""
}

type noteJSON struct {
	Title *string `json:"title"`
	Text  *string `json:"text"`
	Date  *int64  `json:"date"`
}

// MarshalJSON encodes the note as {"title", "text", "date"} with date in epoch millis.
func (n Note) MarshalJSON() ([]byte, error) {
	ms := n.EditedAt.UnixMilli()
	return json.Marshal(noteJSON{Title: &n.Title, Text: &n.Text, Date: &ms})
}

// UnmarshalJSON decodes a note. All three fields are required.
func (n *Note) UnmarshalJSON(data []byte) error {
	var raw noteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Title == nil:
		return errors.New("note: missing title")
	case raw.Text == nil:
		return errors.New("note: missing text")
	case raw.Date == nil:
		return errors.New("note: missing date")
	}
	*n = Note{Title: *raw.Title, Text: *raw.Text, EditedAt: time.UnixMilli(*raw.Date)}
	return nil
}

// Document is the persisted form of the whole note list.
type Document struct {
	Notes []Note `json:"notes"`
}

// Encode serializes notes into the persisted document format.
func Encode(notes []Note) ([]byte, error) {
	if notes == nil {
		notes = []Note{}
	}
	return json.Marshal(Document{Notes: notes})
}

// Decode parses a persisted document. A document without a "notes" array
// or with any invalid element is rejected as a whole.
func Decode(data []byte) ([]Note, error) {
	var raw struct {
		Notes *[]json.RawMessage `json:"notes"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if raw.Notes == nil {
		return nil, errors.New("decode document: missing notes array")
	}
	notes := make([]Note, len(*raw.Notes))
	for i, elem := range *raw.Notes {
		if err := json.Unmarshal(elem, &notes[i]); err != nil {
			return nil, fmt.Errorf("decode document: note %d: %w", i, err)
		}
	}
	return notes, nil
}
