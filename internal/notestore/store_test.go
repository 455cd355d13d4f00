package notestore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/jotlist/internal/apperr"
	"github.com/starford/jotlist/internal/models"
	"github.com/starford/jotlist/internal/notestore"
	"github.com/starford/jotlist/internal/storage"
	"github.com/starford/jotlist/internal/testutil"
)

func TestLoad_EmptyWhenMissing(t *testing.T) {
	s, _ := testutil.TestStore(t)
	notes, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, notes)

	n, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestAdd_OnEmptyStore(t *testing.T) {
	s, _ := testutil.TestStore(t)
	require.NoError(t, s.Add())

	n, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	note, err := s.Get(0)
	require.NoError(t, err)
	require.True(t, note.IsBlank())
}

func TestAdd_InsertsAtTop(t *testing.T) {
	s, _ := testutil.TestStore(t)
	testutil.Seed(t, s, "A", "B")
	require.NoError(t, s.Add())
	require.Equal(t, []string{"", "A", "B"}, testutil.Titles(t, s))
}

func TestAdd_UsesClock(t *testing.T) {
	_, fs := testutil.TestFS(t)
	at := time.UnixMilli(1_234_567_890_123)
	s := notestore.New(fs, notestore.WithClock(func() time.Time { return at }))
	require.NoError(t, s.Add())
	note, err := s.Get(0)
	require.NoError(t, err)
	require.True(t, note.EditedAt.Equal(at))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, _ := testutil.TestStore(t)
	ts := time.UnixMilli(1_600_000_000_000)
	cases := [][]models.Note{
		{},
		{models.At("", "", ts)},
		{models.At("a", "", ts), models.At("", "b", ts), models.At("c", "d\ne", ts.Add(time.Second))},
	}
	for _, in := range cases {
		require.NoError(t, s.Save(in))
		out, err := s.Load()
		require.NoError(t, err)
		require.Equal(t, in, out)
	}
}

func TestInsert_Positions(t *testing.T) {
	s, _ := testutil.TestStore(t)
	testutil.Seed(t, s, "A", "B", "C")

	require.NoError(t, s.Insert(3, models.NewNote("end", "")))
	require.NoError(t, s.Insert(1, models.NewNote("mid", "")))
	require.Equal(t, []string{"A", "mid", "B", "C", "end"}, testutil.Titles(t, s))
}

func TestInsert_OutOfRange(t *testing.T) {
	s, _ := testutil.TestStore(t)
	testutil.Seed(t, s, "A")
	for _, pos := range []int{-1, 2} {
		err := s.Insert(pos, models.NewNote("x", ""))
		require.ErrorIs(t, err, apperr.ErrNotFound)
	}
	require.Equal(t, []string{"A"}, testutil.Titles(t, s))
}

func TestDelete(t *testing.T) {
	s, _ := testutil.TestStore(t)
	testutil.Seed(t, s, "A", "B", "C")
	require.NoError(t, s.Delete(1))
	require.Equal(t, []string{"A", "C"}, testutil.Titles(t, s))

	var nf *apperr.NotFoundError
	require.ErrorAs(t, s.Delete(2), &nf)
	require.Equal(t, 2, nf.Position)
	require.Equal(t, 2, nf.Count)
}

func TestReplace_KeepsOrder(t *testing.T) {
	s, _ := testutil.TestStore(t)
	testutil.Seed(t, s, "A", "B", "C")
	require.NoError(t, s.Replace(1, models.NewNote("B2", "new body")))
	require.Equal(t, []string{"A", "B2", "C"}, testutil.Titles(t, s))

	got, err := s.Get(1)
	require.NoError(t, err)
	require.Equal(t, "new body", got.Text)
	require.ErrorIs(t, s.Replace(3, models.Empty()), apperr.ErrNotFound)
}

func TestMove(t *testing.T) {
	cases := []struct {
		from, to int
		want     []string
	}{
		{0, 2, []string{"B", "C", "A"}},
		{2, 0, []string{"C", "A", "B"}},
		{0, 1, []string{"B", "A", "C"}},
		{1, 2, []string{"A", "C", "B"}},
		{1, 1, []string{"A", "B", "C"}},
	}
	for _, c := range cases {
		s, _ := testutil.TestStore(t)
		testutil.Seed(t, s, "A", "B", "C")
		require.NoError(t, s.Move(c.from, c.to))
		require.Equal(t, c.want, testutil.Titles(t, s), "move(%d, %d)", c.from, c.to)
	}
}

func TestMove_BackAndForthRestores(t *testing.T) {
	titles := []string{"A", "B", "C", "D", "E"}
	for from := range titles {
		for to := range titles {
			if from == to {
				continue
			}
			s, _ := testutil.TestStore(t)
			testutil.Seed(t, s, titles...)
			require.NoError(t, s.Move(from, to))
			require.NoError(t, s.Move(to, from))
			require.Equal(t, titles, testutil.Titles(t, s), "move(%d,%d) then back", from, to)
		}
	}
}

func TestMove_OutOfRange(t *testing.T) {
	s, _ := testutil.TestStore(t)
	testutil.Seed(t, s, "A", "B")
	require.ErrorIs(t, s.Move(0, 2), apperr.ErrNotFound)
	require.ErrorIs(t, s.Move(-1, 0), apperr.ErrNotFound)
}

func TestCountTracksMutations(t *testing.T) {
	s, _ := testutil.TestStore(t)
	steps := []struct {
		op   func() error
		want int
	}{
		{s.Add, 1},
		{func() error { return s.Insert(1, models.NewNote("x", "")) }, 2},
		{func() error { return s.Move(0, 1) }, 2},
		{func() error { return s.Replace(0, models.NewNote("y", "")) }, 2},
		{func() error { return s.Delete(0) }, 1},
		{func() error { return s.Delete(0) }, 0},
	}
	for i, st := range steps {
		require.NoError(t, st.op(), "step %d", i)
		n, err := s.Count()
		require.NoError(t, err)
		require.Equal(t, st.want, n, "step %d", i)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, _ := testutil.TestStore(t)
	_, err := s.Get(0)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMalformedDocumentIsStorageError(t *testing.T) {
	_, fs := testutil.TestFS(t)
	require.NoError(t, fs.Put(notestore.DefaultStoreName, notestore.DefaultEntryName, []byte(`{"notes":[{"title":"a"}]}`)))
	s := notestore.New(fs)

	_, err := s.Load()
	var se *apperr.StorageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "decode", se.Op)

	require.ErrorIs(t, s.Add(), apperr.ErrStorage)

	raw, err := fs.Get(notestore.DefaultStoreName, notestore.DefaultEntryName)
	require.NoError(t, err)
	require.Equal(t, `{"notes":[{"title":"a"}]}`, string(raw), "failed mutation must not rewrite the document")
}

func TestFailedSaveLeavesDocument(t *testing.T) {
	s, faulty := testutil.TestStore(t)
	testutil.Seed(t, s, "A", "B")
	faulty.FailPuts(1)

	err := s.Delete(0)
	require.ErrorIs(t, err, apperr.ErrStorage)
	require.True(t, errors.Is(err, testutil.ErrInjected))
	require.Equal(t, []string{"A", "B"}, testutil.Titles(t, s))
}

func TestReadFailureIsStorageError(t *testing.T) {
	s, faulty := testutil.TestStore(t)
	testutil.Seed(t, s, "A")
	faulty.FailGets(1)
	_, err := s.Count()
	require.ErrorIs(t, err, apperr.ErrStorage)
}

func TestSubscribe_Notifications(t *testing.T) {
	s, _ := testutil.TestStore(t)
	testutil.Seed(t, s, "A", "B", "C")

	var got []notestore.Mutation
	s.Subscribe(func(m notestore.Mutation) { got = append(got, m) })

	require.NoError(t, s.Add())
	require.NoError(t, s.Replace(1, models.NewNote("A2", "")))
	require.NoError(t, s.Move(3, 0))
	require.NoError(t, s.Move(2, 2))
	require.NoError(t, s.Delete(1))
	require.Error(t, s.Delete(10))

	require.Equal(t, []notestore.Mutation{
		{Kind: notestore.KindInserted, Position: 0},
		{Kind: notestore.KindChanged, Position: 1},
		{Kind: notestore.KindMoved, Position: 3, To: 0},
		{Kind: notestore.KindRemoved, Position: 1},
	}, got)
}

func TestObserverMayReadStore(t *testing.T) {
	s, _ := testutil.TestStore(t)
	var counts []int
	s.Subscribe(func(notestore.Mutation) {
		n, err := s.Count()
		require.NoError(t, err)
		counts = append(counts, n)
	})
	require.NoError(t, s.Add())
	require.NoError(t, s.Add())
	require.Equal(t, []int{1, 2}, counts)
}

func TestSnapshotChecksum(t *testing.T) {
	s, _ := testutil.TestStore(t)
	snap, err := s.Snapshot()
	require.NoError(t, err)
	require.Empty(t, snap.Checksum)

	require.NoError(t, s.Add())
	snap, err = s.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Notes, 1)
	require.NotEmpty(t, snap.Checksum)
	require.Equal(t, snap.Checksum, s.Checksum())
}

func TestWithLocation(t *testing.T) {
	_, fs := testutil.TestFS(t)
	s := notestore.New(fs, notestore.WithLocation("other_prefs", "list"))
	require.NoError(t, s.Add())

	_, err := fs.Get(notestore.DefaultStoreName, notestore.DefaultEntryName)
	require.ErrorIs(t, err, storage.ErrNotExist)
	_, err = fs.Get("other_prefs", "list")
	require.NoError(t, err)
}
