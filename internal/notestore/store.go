// Package notestore owns the persisted note list. Every operation loads the
// whole list, applies one change in memory and writes the whole list back
// before returning.
package notestore

import (
	"errors"
	"sync"
	"time"

	"github.com/starford/jotlist/internal/apperr"
	"github.com/starford/jotlist/internal/checksum"
	"github.com/starford/jotlist/internal/models"
	"github.com/starford/jotlist/internal/storage"
)

// Default key-value location of the note list document.
const (
	DefaultStoreName = "notes_prefs"
	DefaultEntryName = "note_list"
)

// Kind names a structural change reported to observers.
type Kind string

const (
	KindInserted Kind = "inserted"
	KindRemoved  Kind = "removed"
	KindChanged  Kind = "changed"
	KindMoved    Kind = "moved"
)

// Mutation describes one committed change. To is only meaningful for
// KindMoved.
type Mutation struct {
	Kind     Kind
	Position int
	To       int
}

// MutationFunc is called after each committed mutation.
type MutationFunc func(Mutation)

// Snapshot is the full list together with the checksum of the document it
// was decoded from.
type Snapshot struct {
	Notes    []models.Note
	Checksum string
}

// Option configures a Store.
type Option func(*Store)

// WithLocation overrides the store and entry names.
func WithLocation(storeName, entryName string) Option {
	return func(s *Store) {
		s.storeName = storeName
		s.entryName = entryName
	}
}

// WithClock overrides the time source used to stamp new notes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is the note list persisted as one JSON document.
type Store struct {
	provider  storage.Provider
	storeName string
	entryName string
	now       func() time.Time

	// mu serializes read-modify-write cycles.
	mu       sync.Mutex
	checksum string

	obsMu     sync.RWMutex
	observers []MutationFunc
}

// New creates a store over the given provider.
func New(provider storage.Provider, opts ...Option) *Store {
	s := &Store{
		provider:  provider,
		storeName: DefaultStoreName,
		entryName: DefaultEntryName,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for mutation notifications. Observers run after
// the store has released its lock, so they may call back into the store.
func (s *Store) Subscribe(fn MutationFunc) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

func (s *Store) notify(m Mutation) {
	s.obsMu.RLock()
	obs := append([]MutationFunc(nil), s.observers...)
	s.obsMu.RUnlock()
	for _, fn := range obs {
		fn(m)
	}
}

// Load returns the whole list. A store that was never written is empty.
func (s *Store) Load() ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Snapshot returns the whole list and the checksum of its document.
func (s *Store) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes, err := s.load()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Notes: notes, Checksum: s.checksum}, nil
}

// Checksum returns the checksum of the document last read or written by
// this store, or "" if none.
func (s *Store) Checksum() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checksum
}

// Save overwrites the document with notes.
func (s *Store) Save(notes []models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(notes)
}

// Add inserts a new empty note at the top of the list.
func (s *Store) Add() error {
	return s.Insert(0, models.At("", "", s.now()))
}

// Insert places note at position, shifting later notes down.
// position must be in [0, Count()].
func (s *Store) Insert(position int, note models.Note) error {
	return s.mutate(func(notes []models.Note) ([]models.Note, *Mutation, error) {
		if position < 0 || position > len(notes) {
			return nil, nil, &apperr.NotFoundError{Position: position, Count: len(notes)}
		}
		notes = append(notes, models.Note{})
		copy(notes[position+1:], notes[position:])
		notes[position] = note
		return notes, &Mutation{Kind: KindInserted, Position: position}, nil
	})
}

// Delete removes the note at position.
func (s *Store) Delete(position int) error {
	return s.mutate(func(notes []models.Note) ([]models.Note, *Mutation, error) {
		if err := checkIndex(position, len(notes)); err != nil {
			return nil, nil, err
		}
		notes = append(notes[:position], notes[position+1:]...)
		return notes, &Mutation{Kind: KindRemoved, Position: position}, nil
	})
}

// Replace swaps the note at position for note.
func (s *Store) Replace(position int, note models.Note) error {
	return s.mutate(func(notes []models.Note) ([]models.Note, *Mutation, error) {
		if err := checkIndex(position, len(notes)); err != nil {
			return nil, nil, err
		}
		notes[position] = note
		return notes, &Mutation{Kind: KindChanged, Position: position}, nil
	})
}

// Move relocates the note at from to index to, keeping the relative order
// of every other note.
func (s *Store) Move(from, to int) error {
	return s.mutate(func(notes []models.Note) ([]models.Note, *Mutation, error) {
		if err := checkIndex(from, len(notes)); err != nil {
			return nil, nil, err
		}
		if err := checkIndex(to, len(notes)); err != nil {
			return nil, nil, err
		}
		if from == to {
			return nil, nil, nil
		}
		moved := notes[from]
		if from < to {
			copy(notes[from:to], notes[from+1:to+1])
		} else {
			copy(notes[to+1:from+1], notes[to:from])
		}
		notes[to] = moved
		return notes, &Mutation{Kind: KindMoved, Position: from, To: to}, nil
	})
}

// Get returns the note at position.
func (s *Store) Get(position int) (models.Note, error) {
	notes, err := s.Load()
	if err != nil {
		return models.Note{}, err
	}
	if err := checkIndex(position, len(notes)); err != nil {
		return models.Note{}, err
	}
	return notes[position], nil
}

// Count returns the number of notes.
func (s *Store) Count() (int, error) {
	notes, err := s.Load()
	if err != nil {
		return 0, err
	}
	return len(notes), nil
}

// mutate runs one load → change → save cycle. fn returns a nil Mutation
// when there is nothing to persist.
func (s *Store) mutate(fn func([]models.Note) ([]models.Note, *Mutation, error)) error {
	s.mu.Lock()
	notes, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	out, m, err := fn(notes)
	if err != nil || m == nil {
		s.mu.Unlock()
		return err
	}
	if err := s.save(out); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notify(*m)
	return nil
}

func (s *Store) load() ([]models.Note, error) {
	data, err := s.provider.Get(s.storeName, s.entryName)
	if errors.Is(err, storage.ErrNotExist) {
		s.checksum = ""
		return []models.Note{}, nil
	}
	if err != nil {
		return nil, &apperr.StorageError{Op: "read", Err: err}
	}
	notes, err := models.Decode(data)
	if err != nil {
		return nil, &apperr.StorageError{Op: "decode", Err: err}
	}
	s.checksum = checksum.Sum(data)
	return notes, nil
}

func (s *Store) save(notes []models.Note) error {
	data, err := models.Encode(notes)
	if err != nil {
		return &apperr.StorageError{Op: "encode", Err: err}
	}
	if err := s.provider.Put(s.storeName, s.entryName, data); err != nil {
		return &apperr.StorageError{Op: "write", Err: err}
	}
	s.checksum = checksum.Sum(data)
	return nil
}

func checkIndex(position, count int) error {
	if position < 0 || position >= count {
		return &apperr.NotFoundError{Position: position, Count: count}
	}
	return nil
}
