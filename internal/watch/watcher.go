// Package watch notices when the persisted note list is rewritten by
// something other than this process.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/jotlist/internal/checksum"
	"github.com/starford/jotlist/internal/notestore"
)

// ReloadCallback is called after an external rewrite of the document.
type ReloadCallback func()

// Watch watches the file at path (the fs backend's note list document) until
// ctx is cancelled. Events are debounced; when they settle the file is
// fingerprinted and compared with the last document the store itself read or
// wrote. Only a mismatch counts as an external change: the store is re-read
// so it adopts the new checksum, and cb is called.
//
// The parent directory is watched rather than the file, because atomic
// writes replace the file by rename.
func Watch(ctx context.Context, path string, store *notestore.Store, debounce time.Duration, logger *slog.Logger, cb ReloadCallback) error {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", path))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			reconcile(path, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: event", slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reconcile(path string, store *notestore.Store, logger *slog.Logger, cb ReloadCallback) {
	current := ""
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		current = checksum.Sum(data)
	case errors.Is(err, fs.ErrNotExist):
	default:
		logger.Warn("watcher: read failed", slog.String("error", err.Error()))
		return
	}

	if current == store.Checksum() {
		return
	}

	if _, err := store.Load(); err != nil {
		logger.Warn("watcher: document unreadable after external change", slog.String("error", err.Error()))
	} else {
		logger.Info("watcher: document changed externally")
	}
	if cb != nil {
		cb()
	}
}
