// Package watch re-validates documents when they change on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches the burst of events an editor save produces
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc is called with a changed document path. Calls never overlap.
type ChangeFunc func(ctx context.Context, path string)

// Watcher monitors a set of documents for writes
type Watcher struct {
	watcher  *fsnotify.Watcher
	callback ChangeFunc
	debounce time.Duration
	logger   *slog.Logger

	// Watched documents by absolute path
	docs map[string]struct{}

	// Debounce state
	pending     map[string]struct{}
	timer       *time.Timer
	busy        bool
	ignoreUntil time.Time
	mu          sync.Mutex

	ctx context.Context
	wg  sync.WaitGroup
}

// New creates a watcher for docs. The containing directories are watched so that
// editors which replace files on save are still seen.
func New(docs []string, callback ChangeFunc, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		callback: callback,
		debounce: DefaultDebounce,
		logger:   logger.With("component", "watch"),
		docs:     make(map[string]struct{}),
		pending:  make(map[string]struct{}),
	}

	dirs := make(map[string]struct{})
	for _, doc := range docs {
		abs, err := filepath.Abs(doc)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolve %s: %w", doc, err)
		}
		w.docs[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return w, nil
}

// SetDebounce sets the debounce duration for batching file changes
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Run watches until ctx is done, then waits for a running callback and closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		w.wg.Wait()
		w.watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only care about writes and creates
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.docs[filepath.Clean(event.Name)]; !ok {
		return
	}

	// Edits made by the validation itself (repairs) must not trigger another run.
	if w.busy || time.Now().Before(w.ignoreUntil) {
		w.logger.Debug("dropping event during validation", "path", event.Name)
		return
	}

	w.pending[filepath.Clean(event.Name)] = struct{}{}

	// Reset or start debounce timer
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.busy || len(w.pending) == 0 || w.ctx == nil || w.ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	w.pending = make(map[string]struct{})
	w.busy = true
	ctx := w.ctx
	w.wg.Add(1)
	w.mu.Unlock()

	defer w.wg.Done()
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		w.logger.Info("document changed", "path", path)
		if w.callback != nil {
			w.callback(ctx, path)
		}
	}

	w.mu.Lock()
	w.busy = false
	// Events for our own writes can arrive after the callback returns.
	w.ignoreUntil = time.Now().Add(w.debounce)
	w.mu.Unlock()
}
