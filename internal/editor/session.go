// Package editor implements the single-note editing session: it remembers
// what the note looked like when opened so unsaved edits can be detected
// before the user navigates away.
package editor

import (
	"github.com/starford/jotlist/internal/models"
	"github.com/starford/jotlist/internal/notestore"
	"github.com/starford/jotlist/internal/selection"
)

// Session edits the note at one position.
type Session struct {
	store    *notestore.Store
	position int
	original models.Note
}

// Open loads the note at position.
func Open(store *notestore.Store, position int) (*Session, error) {
	note, err := store.Get(position)
	if err != nil {
		return nil, err
	}
	return &Session{store: store, position: position, original: note}, nil
}

// Position is the index of the note being edited.
func (s *Session) Position() int { return s.position }

// Original is the note as it was when the session was opened.
func (s *Session) Original() models.Note { return s.original }

// Edited reports whether title or text differ from the opened note.
func (s *Session) Edited(title, text string) bool {
	return title != s.original.Title || text != s.original.Text
}

// ConfirmExit gates navigation away from the editor. Without edits it
// allows leaving straight away; otherwise confirm decides whether the
// changes are discarded.
func (s *Session) ConfirmExit(title, text string, confirm func() bool) bool {
	if !s.Edited(title, text) {
		return true
	}
	return confirm()
}

// Save replaces the note with a freshly stamped one when it was edited.
// It reports whether anything was written.
func (s *Session) Save(title, text string) (bool, error) {
	if !s.Edited(title, text) {
		return false, nil
	}
	note := models.NewNote(title, text)
	if err := s.store.Replace(s.position, note); err != nil {
		return false, err
	}
	s.original = note
	return true, nil
}

// Delete removes the note through ctrl so the removal can be undone.
func (s *Session) Delete(ctrl *selection.Controller) (selection.BatchResult, error) {
	return ctrl.Remove(s.position)
}
