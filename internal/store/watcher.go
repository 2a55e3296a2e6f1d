package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay debounces bursts of write events (editors save in several steps,
// and our own temp-then-rename produces two events).
const settleDelay = 250 * time.Millisecond

// Watcher reloads a FileStore when its document changes on disk, so operators
// can hand-edit the config without restarting the process. The store's own
// writes also trip the watcher; reloading after them is harmless.
type Watcher struct {
	store   *FileStore
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for the store's document. The containing
// directory is watched rather than the file itself, because rename-based
// saves replace the inode.
func NewWatcher(s *FileStore, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(s.Path())); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	return &Watcher{
		store:   s,
		logger:  logger,
		watcher: fw,
	}, nil
}

// Start processes events until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	target := filepath.Base(w.store.Path())

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

// scheduleReload resets the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(settleDelay, w.store.Reload)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
