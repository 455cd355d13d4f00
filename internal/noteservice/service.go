package noteservice

import (
	"context"
	"sync"

	"github.com/starford/jotlist/internal/apperr"
	"github.com/starford/jotlist/internal/editor"
	"github.com/starford/jotlist/internal/models"
	"github.com/starford/jotlist/internal/notestore"
	"github.com/starford/jotlist/internal/selection"
)

// NoteView is a note as shown to a renderer.
type NoteView struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Date     int64  `json:"date"`
}

// ListResult is the whole list plus the checksum of its document.
type ListResult struct {
	Notes    []NoteView `json:"notes"`
	Count    int        `json:"count"`
	Checksum string     `json:"checksum"`
}

// SelectionState describes selection mode for a renderer.
type SelectionState struct {
	Positions   []int  `json:"positions"`
	Mode        string `json:"mode"`
	Selecting   bool   `json:"selecting"`
	PendingUndo int    `json:"pending_undo"`
	CanDrag     bool   `json:"can_drag"`
	CanSwipe    bool   `json:"can_swipe"`
}

// Service serializes access to the store and the selection controller so
// that concurrent surfaces (HTTP handlers, MCP tools) see one ordered
// stream of operations.
type Service struct {
	mu    sync.Mutex
	store *notestore.Store
	ctrl  *selection.Controller
}

// NewService creates a new note service.
func NewService(store *notestore.Store, ctrl *selection.Controller) *Service {
	return &Service{store: store, ctrl: ctrl}
}

// ListNotes returns every note in display order.
func (s *Service) ListNotes(_ context.Context) (*ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}
	views := make([]NoteView, len(snap.Notes))
	for i, n := range snap.Notes {
		views[i] = view(i, n)
	}
	return &ListResult{Notes: views, Count: len(views), Checksum: snap.Checksum}, nil
}

// GetNote returns the note at position.
func (s *Service) GetNote(_ context.Context, position int) (*NoteView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.Get(position)
	if err != nil {
		return nil, err
	}
	v := view(position, n)
	return &v, nil
}

// AddNote puts a new empty note at the top. Like any other list action it
// drops a pending undo and leaves selection mode.
func (s *Service) AddNote(_ context.Context) (*NoteView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reshape()
	if err := s.store.Add(); err != nil {
		return nil, err
	}
	n, err := s.store.Get(0)
	if err != nil {
		return nil, err
	}
	v := view(0, n)
	return &v, nil
}

// InsertNote inserts a new note with the given content at position. It
// drops a pending undo and leaves selection mode.
func (s *Service) InsertNote(_ context.Context, position int, title, text string) (*NoteView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reshape()
	n := models.NewNote(title, text)
	if err := s.store.Insert(position, n); err != nil {
		return nil, err
	}
	v := view(position, n)
	return &v, nil
}

// ReplaceNote saves edits to the note at position. ifMatch, when set, must
// equal the current document checksum. The returned flag is false when the
// content was unchanged and nothing was written.
func (s *Service) ReplaceNote(_ context.Context, position int, title, text, ifMatch string) (*NoteView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ifMatch != "" {
		snap, err := s.store.Snapshot()
		if err != nil {
			return nil, false, err
		}
		if snap.Checksum != ifMatch {
			return nil, false, apperr.ErrConflict
		}
	}
	sess, err := editor.Open(s.store, position)
	if err != nil {
		return nil, false, err
	}
	saved, err := sess.Save(title, text)
	if err != nil {
		return nil, false, err
	}
	v := view(position, sess.Original())
	return &v, saved, nil
}

// DeleteNote removes one note, undoably. Single deletes are only allowed
// while no note is selected.
func (s *Service) DeleteNote(_ context.Context, position int) (selection.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ctrl.CanSwipe() {
		return selection.BatchResult{}, apperr.ErrConflict
	}
	return s.ctrl.Remove(position)
}

// MoveNote moves a note from one position to another. It drops a pending
// undo and leaves selection mode.
func (s *Service) MoveNote(_ context.Context, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reshape()
	return s.store.Move(from, to)
}

// DragStep applies one live drag step. Drags are only allowed while exactly
// one note is selected.
func (s *Service) DragStep(_ context.Context, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ctrl.CanDrag() {
		return apperr.ErrConflict
	}
	return s.ctrl.DragStep(from, to)
}

// EndDrag finishes a drag started with DragStep.
func (s *Service) EndDrag(_ context.Context) SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.EndDrag()
	return s.state()
}

// Selection returns the current selection state.
func (s *Service) Selection(_ context.Context) SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// ToggleSelection flips one position. Touching the list drops a pending
// undo.
func (s *Service) ToggleSelection(_ context.Context, position int) (SelectionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctrl.DiscardUndo()
	if _, err := s.ctrl.Toggle(position); err != nil {
		return s.state(), err
	}
	return s.state(), nil
}

// ClearSelection cancels selection mode.
func (s *Service) ClearSelection(_ context.Context) SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Clear()
	return s.state()
}

// DeleteSelection removes every selected note and leaves selection mode.
func (s *Service) DeleteSelection(_ context.Context) (selection.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.DeleteSelection()
}

// RemoveNotes removes the notes at positions as one undoable batch.
func (s *Service) RemoveNotes(_ context.Context, positions []int) (selection.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.RemoveSelected(positions)
}

// Undo restores the last removed batch. Selection mode is left first since
// the restored notes shift every later position.
func (s *Service) Undo(_ context.Context) (selection.UndoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Clear()
	return s.ctrl.Undo()
}

// Reloaded resets selection and undo after the document was replaced from
// outside; neither refers to the new list.
func (s *Service) Reloaded(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reshape()
}

// reshape prepares for a change to the length or order of the list that is
// not part of a drag: selected positions and the undo buffer would point at
// other notes afterwards.
func (s *Service) reshape() {
	s.ctrl.Clear()
	s.ctrl.DiscardUndo()
}

// DiscardUndo drops the last removed batch.
func (s *Service) DiscardUndo(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.DiscardUndo()
}

func (s *Service) state() SelectionState {
	return SelectionState{
		Positions:   s.ctrl.Selection(),
		Mode:        s.ctrl.Mode().String(),
		Selecting:   s.ctrl.Selecting(),
		PendingUndo: s.ctrl.Pending(),
		CanDrag:     s.ctrl.CanDrag(),
		CanSwipe:    s.ctrl.CanSwipe(),
	}
}

func view(position int, n models.Note) NoteView {
	return NoteView{
		Position: position,
		Title:    n.Title,
		Text:     n.Text,
		Date:     n.EditedAt.UnixMilli(),
	}
}
