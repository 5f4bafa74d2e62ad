// Package watcher reports debounced changes to individual files.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 300 * time.Millisecond

type Watcher interface {
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FSWatcher watches files through their parent directories, so files replaced
// by rename (as most editors save) keep being tracked. Bursts of events for
// one file are collapsed into a single callback after the debounce interval.
// Callbacks run sequentially on the watcher goroutine.
type FSWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	callback func(path string, event EventType)
	targets  map[string]bool
	dirs     map[string]bool
	running  bool
	done     chan struct{}
	wg       sync.WaitGroup
}

func New(debounce time.Duration, logger *slog.Logger) (*FSWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FSWatcher{
		watcher:  w,
		debounce: debounce,
		logger:   logger.With("component", "watcher"),
		targets:  make(map[string]bool),
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}, nil
}

func (w *FSWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	w.callback = callback
	w.mu.Unlock()
}

// Watch adds path to the watched set and starts the event loop if it is not
// running. The loop ends when ctx is done or Stop is called; a later Watch
// with a live context starts it again.
func (w *FSWatcher) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid watch path: %w", err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return fmt.Errorf("watch %s: watcher is stopped", abs)
	default:
	}

	if !w.dirs[dir] {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.targets[abs] = true
	w.logger.Info("watching file", "path", abs)

	if !w.running {
		w.running = true
		w.wg.Add(1)
		go w.loop(ctx)
	}
	return nil
}

// Stop ends the event loop and releases the underlying watcher. It blocks
// until any in-flight callback returns.
func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		return nil
	default:
	}
	close(w.done)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *FSWatcher) loop(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	pending := make(map[string]EventType)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			path, kind, ok := w.convertEvent(event)
			if !ok {
				continue
			}
			w.logger.Debug("file event", "path", path, "op", kind.String())
			pending[path] = kind
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			w.mu.Lock()
			cb := w.callback
			w.mu.Unlock()
			for path, kind := range pending {
				delete(pending, path)
				if cb != nil {
					cb(path, kind)
				}
			}
		}
	}
}

func (w *FSWatcher) convertEvent(event fsnotify.Event) (string, EventType, bool) {
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	watched := w.targets[path]
	w.mu.Unlock()
	if !watched {
		return "", 0, false
	}

	switch {
	case event.Has(fsnotify.Create):
		return path, EventCreate, true
	case event.Has(fsnotify.Write):
		return path, EventModify, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return path, EventDelete, true
	default:
		return "", 0, false
	}
}
