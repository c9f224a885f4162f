package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is emitted.
const DefaultDebounce = 2 * time.Second

// Filter decides whether a changed path below root is worth emitting.
type Filter interface {
	Accepts(root, path string) bool
}

// Watcher monitors a directory tree and emits the path of every audio file
// that was created or modified, once writes to it have settled.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	filter   Filter
	debounce time.Duration
	events   chan string

	mu      sync.Mutex
	pending map[string]*time.Timer
	queue   []string // settled paths not yet handed to Events
	ready   chan struct{}
	done    chan struct{}
	closed  bool
}

// NewWatcher creates a new file system watcher for root
func NewWatcher(root string, filter Filter, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:  fw,
		root:     filepath.Clean(root),
		filter:   filter,
		debounce: debounce,
		events:   make(chan string, 64),
		pending:  map[string]*time.Timer{},
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Events returns the channel paths are emitted on. It is closed once the watcher stops.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Start registers every directory below root and begins the event loop. The
// loop ends, and Events is closed, when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	slog.Info("Starting file watcher", "path", w.root)
	if err := w.addTree(w.root); err != nil {
		w.watcher.Close()
		return err
	}
	go w.deliver()
	go w.watchLoop(ctx)
	return nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			slog.Warn("Not watching unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			slog.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// watchLoop processes file system events
func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.stop()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// files moved in together with the directory produce no events of their own
			if err := w.addTree(event.Name); err != nil {
				slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
			w.scheduleTree(event.Name)
			return
		}
	}
	w.schedule(event.Name)
}

func (w *Watcher) scheduleTree(dir string) {
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			w.schedule(path)
		}
		return nil
	})
}

// schedule starts or resets the debounce timer of path
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() { w.emit(path) })
}

// emit queues path once its debounce period ran out
func (w *Watcher) emit(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	closed := w.closed
	w.mu.Unlock()
	if closed || !w.filter.Accepts(w.root, path) {
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.queue = append(w.queue, path)
	w.mu.Unlock()

	select {
	case w.ready <- struct{}{}:
	default:
	}
}

// deliver hands queued paths to Events in order, waiting for the consumer
// when it is slow. It closes Events once the watcher stops.
func (w *Watcher) deliver() {
	defer close(w.events)
	for {
		select {
		case <-w.done:
			return
		case <-w.ready:
		}

		for {
			w.mu.Lock()
			if len(w.queue) == 0 {
				w.mu.Unlock()
				break
			}
			path := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()

			select {
			case w.events <- path:
				slog.Debug("Emitted file event after debounce", "path", path)
			case <-w.done:
				return
			}
		}
	}
}

// stop cancels pending timers and ends delivery, which closes the event channel
func (w *Watcher) stop() {
	slog.Info("Stopping file watcher")
	w.mu.Lock()
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.queue = nil
	w.mu.Unlock()

	close(w.done)
	w.watcher.Close()
}
