// Package storage defines the key-value abstraction the note list is
// persisted in. Values are addressed by a store name (a namespace, like an
// Android preferences file) and an entry name inside it.
package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotExist is returned by Get when the entry has never been written.
var ErrNotExist = errors.New("storage: entry does not exist")

// Backend names accepted by Open.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Provider is the interface for key-value persistence.
type Provider interface {
	// Get returns the value stored under store/key, or ErrNotExist.
	Get(store, key string) ([]byte, error)
	// Put atomically replaces the value under store/key. On failure the
	// previous value is left intact.
	Put(store, key string, value []byte) error
	// Delete removes store/key. Deleting a missing entry is not an error.
	Delete(store, key string) error
	// Close releases the backend.
	Close() error
}

// Open creates the provider for the named backend rooted at path. For the
// fs backend path is a directory; for sqlite and bolt it is a database file.
func Open(backend, path string) (Provider, error) {
	switch backend {
	case BackendFS:
		return NewFS(path)
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

// validName rejects names that are empty or could address anything other
// than a single flat entry.
func validName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("storage: empty %s name", kind)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("storage: invalid %s name: %q", kind, name)
	}
	return nil
}
