package selection

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/jotlist/internal/apperr"
	"github.com/starford/jotlist/internal/notestore"
	"github.com/starford/jotlist/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newController(t *testing.T, titles ...string) (*Controller, *notestore.Store, *testutil.Faulty) {
	t.Helper()
	s, faulty := testutil.TestStore(t)
	testutil.Seed(t, s, titles...)
	return New(s, quietLogger()), s, faulty
}

func TestRemoveSelectedThenUndo_Scenario(t *testing.T) {
	c, s, _ := newController(t, "A", "B", "C")

	res, err := c.RemoveSelected([]int{0, 2})
	require.NoError(t, err)
	require.Equal(t, BatchResult{Requested: 2, Removed: 2}, res)
	require.Equal(t, []string{"B"}, testutil.Titles(t, s))
	require.Equal(t, 2, c.Pending())

	ur, err := c.Undo()
	require.NoError(t, err)
	require.Equal(t, UndoResult{Restored: 2}, ur)
	require.Equal(t, []string{"A", "B", "C"}, testutil.Titles(t, s))
	require.Zero(t, c.Pending())
}

func TestRemoveThenUndo_AllSubsets(t *testing.T) {
	titles := []string{"A", "B", "C", "D", "E"}
	for mask := 1; mask < 1<<len(titles); mask++ {
		c, s, _ := newController(t, titles...)
		before, err := s.Load()
		require.NoError(t, err)

		var positions []int
		for i := range titles {
			if mask&(1<<i) != 0 {
				positions = append(positions, i)
			}
		}
		res, err := c.RemoveSelected(positions)
		require.NoError(t, err)
		require.Equal(t, len(positions), res.Removed)

		n, err := s.Count()
		require.NoError(t, err)
		require.Equal(t, len(titles)-len(positions), n)

		_, err = c.Undo()
		require.NoError(t, err)
		after, err := s.Load()
		require.NoError(t, err)
		require.Equal(t, before, after, "positions %v", positions)
	}
}

func TestRemoveSelected_PartialFailure(t *testing.T) {
	c, s, _ := newController(t, "A", "B", "C")

	res, err := c.RemoveSelected([]int{7, 0})
	require.ErrorIs(t, err, apperr.ErrPartial)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	var pe *apperr.PartialError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 1, pe.Failed)
	require.Equal(t, BatchResult{Requested: 2, Removed: 1, Failed: 1}, res)
	require.Equal(t, []string{"B", "C"}, testutil.Titles(t, s))

	_, err = c.Undo()
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, testutil.Titles(t, s))
}

func TestRemoveSelected_AllFailDiscardsBuffer(t *testing.T) {
	c, _, _ := newController(t, "A")
	_, err := c.RemoveSelected([]int{0})
	require.NoError(t, err)
	require.Equal(t, 1, c.Pending())

	res, err := c.RemoveSelected([]int{5, 6})
	require.ErrorIs(t, err, apperr.ErrPartial)
	require.Equal(t, 2, res.Failed)
	require.Zero(t, c.Pending(), "a new removal replaces the previous buffer even when nothing is removed")
}

func TestRemoveSelected_DeduplicatesAndEmpty(t *testing.T) {
	c, s, _ := newController(t, "A", "B")
	res, err := c.RemoveSelected([]int{1, 1, 1})
	require.NoError(t, err)
	require.Equal(t, BatchResult{Requested: 1, Removed: 1}, res)
	require.Equal(t, []string{"A"}, testutil.Titles(t, s))

	res, err = c.RemoveSelected(nil)
	require.NoError(t, err)
	require.Equal(t, BatchResult{}, res)
	require.Zero(t, c.Pending())
}

func TestRemoveSelected_ReplacesPreviousBuffer(t *testing.T) {
	c, s, _ := newController(t, "A", "B", "C")
	_, err := c.Remove(0)
	require.NoError(t, err)
	_, err = c.Remove(0)
	require.NoError(t, err)
	require.Equal(t, 1, c.Pending())

	_, err = c.Undo()
	require.NoError(t, err)
	require.Equal(t, []string{"B", "C"}, testutil.Titles(t, s))
}

func TestRemoveSelected_StorageFailureSkipsPosition(t *testing.T) {
	c, s, faulty := newController(t, "A", "B", "C")
	calls := 0
	faulty.FailPutWhen(func(int) bool {
		calls++
		return calls == 1 // first delete (position 2) fails
	})

	res, err := c.RemoveSelected([]int{0, 2})
	require.ErrorIs(t, err, apperr.ErrStorage)
	require.Equal(t, BatchResult{Requested: 2, Removed: 1, Failed: 1}, res)
	require.Equal(t, []string{"B", "C"}, testutil.Titles(t, s))
	require.Equal(t, 1, c.Pending())
}

func TestUndo_StopsOnFailureAndRetries(t *testing.T) {
	c, s, faulty := newController(t, "A", "B", "C", "D")
	_, err := c.RemoveSelected([]int{0, 1, 2})
	require.NoError(t, err)
	require.Equal(t, []string{"D"}, testutil.Titles(t, s))

	calls := 0
	faulty.FailPutWhen(func(int) bool {
		calls++
		return calls == 2
	})
	res, err := c.Undo()
	require.ErrorIs(t, err, apperr.ErrPartial)
	require.ErrorIs(t, err, apperr.ErrStorage)
	require.Equal(t, UndoResult{Restored: 1, Remaining: 2}, res)
	require.Equal(t, 2, c.Pending())
	require.Equal(t, []string{"A", "D"}, testutil.Titles(t, s))

	faulty.FailPutWhen(nil)
	res, err = c.Undo()
	require.NoError(t, err)
	require.Equal(t, UndoResult{Restored: 2}, res)
	require.Equal(t, []string{"A", "B", "C", "D"}, testutil.Titles(t, s))
}

func TestUndo_NothingPending(t *testing.T) {
	c, _, _ := newController(t, "A")
	res, err := c.Undo()
	require.NoError(t, err)
	require.Equal(t, UndoResult{}, res)
}

func TestDiscardUndo(t *testing.T) {
	c, s, _ := newController(t, "A", "B")
	_, err := c.Remove(1)
	require.NoError(t, err)
	c.DiscardUndo()
	require.Zero(t, c.Pending())
	_, err = c.Undo()
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, testutil.Titles(t, s))
}

func TestToggle_ModeTransitions(t *testing.T) {
	c, _, _ := newController(t, "A", "B", "C")
	var events []Event
	c.OnEvent(func(ev Event) { events = append(events, ev) })

	mode, err := c.Toggle(1)
	require.NoError(t, err)
	require.Equal(t, Selecting, mode)
	mode, err = c.Toggle(2)
	require.NoError(t, err)
	require.Equal(t, Selecting, mode)
	require.Equal(t, []int{1, 2}, c.Selection())

	_, _ = c.Toggle(1)
	mode, err = c.Toggle(2)
	require.NoError(t, err)
	require.Equal(t, Idle, mode)
	require.Empty(t, c.Selection())

	require.Equal(t, []Event{
		{Kind: EventStarted},
		{Kind: EventChanged, Position: 1, Selected: true},
		{Kind: EventChanged, Position: 2, Selected: true},
		{Kind: EventChanged, Position: 1, Selected: false},
		{Kind: EventChanged, Position: 2, Selected: false},
		{Kind: EventFinished},
	}, events)
}

func TestToggle_OutOfRange(t *testing.T) {
	c, _, _ := newController(t, "A")
	_, err := c.Toggle(1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = c.Toggle(-1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, Idle, c.Mode())
}

func TestClear_ReportsEachPosition(t *testing.T) {
	c, s, _ := newController(t, "A", "B", "C")
	_, _ = c.Toggle(0)
	_, _ = c.Toggle(2)

	var events []Event
	c.OnEvent(func(ev Event) { events = append(events, ev) })
	c.Clear()

	require.False(t, c.Selecting())
	require.Equal(t, []Event{
		{Kind: EventChanged, Position: 0},
		{Kind: EventChanged, Position: 2},
		{Kind: EventFinished},
	}, events)
	require.Equal(t, []string{"A", "B", "C"}, testutil.Titles(t, s), "cancel must not delete")

	events = nil
	c.Clear()
	require.Empty(t, events, "clearing while idle is a no-op")
}

func TestDeleteSelection_EndsSelectionMode(t *testing.T) {
	c, s, _ := newController(t, "A", "B", "C", "D")
	_, _ = c.Toggle(3)
	_, _ = c.Toggle(1)

	var finished bool
	c.OnEvent(func(ev Event) {
		if ev.Kind == EventFinished {
			finished = true
		}
	})
	res, err := c.DeleteSelection()
	require.NoError(t, err)
	require.Equal(t, 2, res.Removed)
	require.True(t, finished)
	require.Equal(t, Idle, c.Mode())
	require.Equal(t, []string{"A", "C"}, testutil.Titles(t, s))

	_, err = c.Undo()
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C", "D"}, testutil.Titles(t, s))
}

func TestGestureGates(t *testing.T) {
	c, _, _ := newController(t, "A", "B")
	require.True(t, c.CanSwipe())
	require.False(t, c.CanDrag())

	_, _ = c.Toggle(0)
	require.False(t, c.CanSwipe())
	require.True(t, c.CanDrag())

	_, _ = c.Toggle(1)
	require.False(t, c.CanDrag())
}

func TestDrag_MovesLiveAndEndsSelection(t *testing.T) {
	c, s, _ := newController(t, "A", "B", "C")
	_, _ = c.Toggle(0)

	var events []Event
	c.OnEvent(func(ev Event) { events = append(events, ev) })

	require.NoError(t, c.DragStep(0, 1))
	require.NoError(t, c.DragStep(1, 2))
	require.Equal(t, []string{"B", "C", "A"}, testutil.Titles(t, s))

	c.EndDrag()
	require.Equal(t, Idle, c.Mode())
	require.Equal(t, []Event{
		{Kind: EventChanged, Position: 2},
		{Kind: EventFinished},
	}, events)
}

func TestEndDrag_WithoutMoveKeepsSelection(t *testing.T) {
	c, _, _ := newController(t, "A", "B")
	_, _ = c.Toggle(0)
	c.EndDrag()
	require.Equal(t, []int{0}, c.Selection())
}

func TestModeString(t *testing.T) {
	require.Equal(t, "idle", Idle.String())
	require.Equal(t, "selecting", Selecting.String())
}

func TestDragStep_MustStartAtSelectedNote(t *testing.T) {
	c, s, _ := newController(t, "A", "B", "C")
	_, _ = c.Toggle(0)

	require.ErrorIs(t, c.DragStep(1, 2), apperr.ErrConflict)
	require.Equal(t, []string{"A", "B", "C"}, testutil.Titles(t, s))

	require.NoError(t, c.DragStep(0, 1))
	require.ErrorIs(t, c.DragStep(0, 2), apperr.ErrConflict, "later steps continue from the last target")
	require.Equal(t, []string{"B", "A", "C"}, testutil.Titles(t, s))
}

func TestClear_ResetsDrag(t *testing.T) {
	c, _, _ := newController(t, "A", "B", "C")
	_, _ = c.Toggle(0)
	require.NoError(t, c.DragStep(0, 1))

	c.Clear()
	_, _ = c.Toggle(2)
	require.NoError(t, c.DragStep(2, 0), "a new drag starts from the new selection")
}
