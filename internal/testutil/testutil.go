// Package testutil provides shared test helpers for stores and providers.
package testutil

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/jotlist/internal/models"
	"github.com/starford/jotlist/internal/notestore"
	"github.com/starford/jotlist/internal/storage"
)

// TestFS creates a file-system provider in a temporary directory.
func TestFS(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// ErrInjected is returned by Faulty when a fault fires.
var ErrInjected = errors.New("injected fault")

// Faulty wraps a provider and fails Get or Put on demand.
type Faulty struct {
	storage.Provider

	mu      sync.Mutex
	getErrs int
	putErrs int
	putHook func(n int) bool
	puts    int
}

// NewFaulty wraps p.
func NewFaulty(p storage.Provider) *Faulty {
	return &Faulty{Provider: p}
}

// FailGets makes the next n Get calls fail.
func (f *Faulty) FailGets(n int) {
	f.mu.Lock()
	f.getErrs = n
	f.mu.Unlock()
}

// FailPuts makes the next n Put calls fail.
func (f *Faulty) FailPuts(n int) {
	f.mu.Lock()
	f.putErrs = n
	f.mu.Unlock()
}

// FailPutWhen fails every Put for which hook returns true. hook receives
// the 1-based count of Put calls made so far, including this one.
func (f *Faulty) FailPutWhen(hook func(n int) bool) {
	f.mu.Lock()
	f.putHook = hook
	f.mu.Unlock()
}

func (f *Faulty) Get(store, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.getErrs > 0
	if fail {
		f.getErrs--
	}
	f.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return f.Provider.Get(store, key)
}

func (f *Faulty) Put(store, key string, value []byte) error {
	f.mu.Lock()
	f.puts++
	fail := f.putErrs > 0 || (f.putHook != nil && f.putHook(f.puts))
	if f.putErrs > 0 {
		f.putErrs--
	}
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Provider.Put(store, key, value)
}

// TestStore creates a note store on a temporary file-system provider,
// wrapped in Faulty so tests can inject storage failures.
func TestStore(t *testing.T) (*notestore.Store, *Faulty) {
	t.Helper()
	_, fs := TestFS(t)
	faulty := NewFaulty(fs)
	return notestore.New(faulty), faulty
}

// Seed writes notes titled by titles, in order, directly into the store.
func Seed(t *testing.T, s *notestore.Store, titles ...string) []models.Note {
	t.Helper()
	base := time.UnixMilli(1_700_000_000_000)
	notes := make([]models.Note, len(titles))
	for i, title := range titles {
		notes[i] = models.At(title, "text of "+title, base.Add(time.Duration(i)*time.Minute))
	}
	if err := s.Save(notes); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return notes
}

// Titles loads the list and returns its titles in order.
func Titles(t *testing.T, s *notestore.Store) []string {
	t.Helper()
	notes, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}
