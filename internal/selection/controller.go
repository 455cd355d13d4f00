// Package selection tracks which notes are selected, deletes batches of
// notes and keeps enough of each batch to put it back.
//
// A Controller is not safe for concurrent use; callers on several
// goroutines must serialize access.
package selection

import (
	"log/slog"
	"slices"

	"github.com/starford/jotlist/internal/apperr"
	"github.com/starford/jotlist/internal/models"
	"github.com/starford/jotlist/internal/notestore"
)

// Mode is the selection state of the list.
type Mode int

const (
	Idle Mode = iota
	Selecting
)

func (m Mode) String() string {
	if m == Selecting {
		return "selecting"
	}
	return "idle"
}

// EventKind names a selection change reported to the renderer.
type EventKind string

const (
	EventStarted  EventKind = "selection.started"
	EventChanged  EventKind = "selection.changed"
	EventFinished EventKind = "selection.finished"
)

// Event is one selection change. Position and Selected are set for
// EventChanged only.
type Event struct {
	Kind     EventKind
	Position int
	Selected bool
}

// EventFunc receives selection events.
type EventFunc func(Event)

// BatchResult summarizes a batch removal.
type BatchResult struct {
	Requested int `json:"requested"`
	Removed   int `json:"removed"`
	Failed    int `json:"failed"`
}

// UndoResult summarizes an undo pass.
type UndoResult struct {
	Restored  int `json:"restored"`
	Remaining int `json:"remaining"`
}

type removed struct {
	position int
	note     models.Note
}

// Controller coordinates selection mode, batch deletion and undo.
type Controller struct {
	store  *notestore.Store
	logger *slog.Logger

	selected  map[int]struct{}
	undo      []removed // top of stack is the last element
	listeners []EventFunc

	dragFrom int
	dragTo   int
}

// New creates a controller over store. A nil logger uses slog.Default().
func New(store *notestore.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    store,
		logger:   logger,
		selected: make(map[int]struct{}),
		dragFrom: -1,
		dragTo:   -1,
	}
}

// OnEvent registers fn for selection events.
func (c *Controller) OnEvent(fn EventFunc) {
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) emit(ev Event) {
	for _, fn := range c.listeners {
		fn(ev)
	}
}

// Mode reports whether any note is selected.
func (c *Controller) Mode() Mode {
	if len(c.selected) > 0 {
		return Selecting
	}
	return Idle
}

// Selecting is shorthand for Mode() == Selecting.
func (c *Controller) Selecting() bool { return len(c.selected) > 0 }

// Selection returns the selected positions in ascending order.
func (c *Controller) Selection() []int {
	out := make([]int, 0, len(c.selected))
	for p := range c.selected {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Toggle flips the selection of position and returns the resulting mode.
// Selecting the first note enters selection mode; unselecting the last one
// leaves it.
func (c *Controller) Toggle(position int) (Mode, error) {
	n, err := c.store.Count()
	if err != nil {
		return c.Mode(), err
	}
	if position < 0 || position >= n {
		return c.Mode(), &apperr.NotFoundError{Position: position, Count: n}
	}

	if len(c.selected) == 0 {
		c.emit(Event{Kind: EventStarted})
	}
	_, on := c.selected[position]
	if on {
		delete(c.selected, position)
	} else {
		c.selected[position] = struct{}{}
	}
	c.emit(Event{Kind: EventChanged, Position: position, Selected: !on})
	if len(c.selected) == 0 {
		c.emit(Event{Kind: EventFinished})
	}
	return c.Mode(), nil
}

// Clear leaves selection mode without deleting anything. Every previously
// selected position is reported as unselected.
func (c *Controller) Clear() {
	c.dragFrom, c.dragTo = -1, -1
	if len(c.selected) == 0 {
		return
	}
	prev := c.Selection()
	clear(c.selected)
	for _, p := range prev {
		c.emit(Event{Kind: EventChanged, Position: p, Selected: false})
	}
	c.emit(Event{Kind: EventFinished})
}

// RemoveSelected deletes the notes at positions and records them for Undo,
// replacing any earlier undo buffer. Positions are processed from highest
// to lowest so earlier-recorded indices stay valid. Positions that cannot
// be read or deleted are skipped; if any were skipped a *apperr.PartialError
// is returned alongside the result. Selection mode is left afterwards.
func (c *Controller) RemoveSelected(positions []int) (BatchResult, error) {
	order := slices.Clone(positions)
	slices.Sort(order)
	order = slices.Compact(order)
	slices.Reverse(order)

	c.undo = nil
	res := BatchResult{Requested: len(order)}
	var lastErr error
	for _, pos := range order {
		note, err := c.store.Get(pos)
		if err != nil {
			c.logger.Warn("remove: read failed", slog.Int("position", pos), slog.String("error", err.Error()))
			res.Failed++
			lastErr = err
			continue
		}
		if err := c.store.Delete(pos); err != nil {
			c.logger.Warn("remove: delete failed", slog.Int("position", pos), slog.String("error", err.Error()))
			res.Failed++
			lastErr = err
			continue
		}
		c.undo = append(c.undo, removed{position: pos, note: note})
		res.Removed++
	}

	c.Clear()

	if res.Failed > 0 {
		return res, &apperr.PartialError{Op: "remove", Total: res.Requested, Failed: res.Failed, Err: lastErr}
	}
	return res, nil
}

// DeleteSelection removes every selected note.
func (c *Controller) DeleteSelection() (BatchResult, error) {
	return c.RemoveSelected(c.Selection())
}

// Remove deletes a single note, undoably.
func (c *Controller) Remove(position int) (BatchResult, error) {
	return c.RemoveSelected([]int{position})
}

// Pending returns the number of notes Undo would restore.
func (c *Controller) Pending() int { return len(c.undo) }

// DiscardUndo forgets the last removal.
func (c *Controller) DiscardUndo() { c.undo = nil }

// Undo re-inserts removed notes at their recorded positions, most recently
// removed first. An entry leaves the buffer only once it has been restored;
// on failure Undo stops and the rest stays pending for a later call.
func (c *Controller) Undo() (UndoResult, error) {
	var res UndoResult
	for len(c.undo) > 0 {
		top := c.undo[len(c.undo)-1]
		if err := c.store.Insert(top.position, top.note); err != nil {
			c.logger.Warn("undo: restore failed", slog.Int("position", top.position), slog.String("error", err.Error()))
			res.Remaining = len(c.undo)
			return res, &apperr.PartialError{Op: "undo", Total: res.Restored + res.Remaining, Failed: res.Remaining, Err: err}
		}
		c.undo = c.undo[:len(c.undo)-1]
		res.Restored++
	}
	return res, nil
}

// CanDrag reports whether a note may be dragged: exactly one must be
// selected.
func (c *Controller) CanDrag() bool { return len(c.selected) == 1 }

// CanSwipe reports whether swipe-to-delete is allowed: only when idle.
func (c *Controller) CanSwipe() bool { return len(c.selected) == 0 }

// DragStep moves the dragged note one step. It is called live for each
// intermediate target while the drag is in progress. The first step must
// start at the single selected position and each later step where the
// previous one ended; otherwise apperr.ErrConflict is returned.
func (c *Controller) DragStep(from, to int) error {
	if c.dragFrom == -1 {
		sel := c.Selection()
		if len(sel) != 1 || sel[0] != from {
			return apperr.ErrConflict
		}
	} else if from != c.dragTo {
		return apperr.ErrConflict
	}
	if err := c.store.Move(from, to); err != nil {
		return err
	}
	if c.dragFrom == -1 {
		c.dragFrom = from
	}
	c.dragTo = to
	return nil
}

// EndDrag finishes a drag. If a note was moved while it was the only
// selection, it is unselected at its new position and selection mode ends.
func (c *Controller) EndDrag() {
	if c.dragFrom != -1 && c.dragTo != -1 && len(c.selected) == 1 {
		delete(c.selected, c.dragFrom)
		c.emit(Event{Kind: EventChanged, Position: c.dragTo, Selected: false})
		if len(c.selected) == 0 {
			c.emit(Event{Kind: EventFinished})
		} else {
			c.Clear()
		}
	}
	c.dragFrom, c.dragTo = -1, -1
}
