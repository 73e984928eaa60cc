// Package watch drives the incremental tracker handlers from file system
// notifications under a project's Assets folder.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"eventtracker/internal/application/common/logging"
	"eventtracker/internal/application/common/slogger"
	"eventtracker/internal/port/inbound"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for the file system to go
// quiet before handing a batch to the handler.
const DefaultDebounce = 250 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Ignore reports whether a project-relative path should produce no events.
	Ignore func(path string) bool
}

// Stats counts what a watcher has seen since it started.
type Stats struct {
	Events        int64
	Batches       int64
	HandlerErrors int64
	WatchErrors   int64
	ActiveSince   time.Time
	LastBatchAt   time.Time
}

// Watcher turns file notifications into change batches.
type Watcher struct {
	root    string
	handler inbound.ChangeHandler
	opts    Options
	log     logging.ApplicationLogger

	mu      sync.RWMutex
	running bool
	stats   Stats
}

// NewWatcher creates a watcher for the project at root.
func NewWatcher(root string, handler inbound.ChangeHandler, opts Options) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("change handler cannot be nil")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Ignore == nil {
		opts.Ignore = func(string) bool { return false }
	}
	return &Watcher{root: root, handler: handler, opts: opts, log: slogger.WithComponent("watch")}, nil
}

// IsRunning reports whether Run is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// Run watches until ctx is cancelled. Changes still pending at that point
// are flushed before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running for %s", w.root)
	}
	w.running = true
	w.stats = Stats{ActiveSince: time.Now()}
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	assets := filepath.Join(w.root, "Assets")
	if err := w.addTree(fw, assets, nil); err != nil {
		return fmt.Errorf("watch %s: %w", assets, err)
	}
	w.log.Info(ctx, "Watching project", slogger.Fields{
		"root":     w.root,
		"debounce": w.opts.Debounce.String(),
	})

	pending := newPendingChanges()
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if pending.len() > 0 {
				w.flush(context.WithoutCancel(ctx), pending)
			}
			w.log.Info(ctx, "Watcher stopped", slogger.Fields{"root": w.root})
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if w.handleEvent(fw, event, pending) {
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			w.mu.Lock()
			w.stats.WatchErrors++
			w.mu.Unlock()
			w.log.Warn(ctx, "Watch error", slogger.Fields{"error": err.Error()})

		case <-timer.C:
			w.flush(ctx, pending)
		}
	}
}

// handleEvent records an event and reports whether anything was recorded.
func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event, pending *pendingChanges) bool {
	rel, ok := w.relative(event.Name)
	if !ok {
		return false
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return false
		}
		if info.IsDir() {
			// Files may land before the watch on the new folder exists.
			if err := w.addTree(fw, event.Name, pending); err != nil {
				slogger.WarnNoCtx("Failed to watch new folder", slogger.Fields{
					"path":  rel,
					"error": err.Error(),
				})
			}
		} else {
			pending.record(rel, opCreate)
		}
	case event.Has(fsnotify.Write):
		pending.record(rel, opModify)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		pending.record(rel, opDelete)
	default:
		return false
	}

	w.mu.Lock()
	w.stats.Events++
	w.mu.Unlock()
	return true
}

// addTree watches dir and its folders. When pending is set, files already
// present are recorded as created.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string, pending *pendingChanges) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, ok := w.relative(path)
		if !ok {
			if d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			if !d.IsDir() {
				return nil
			}
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		if pending != nil {
			pending.record(rel, opCreate)
		}
		return nil
	})
}

// relative maps an absolute event path to a project-relative one, rejecting
// ignored and temporary files.
func (w *Watcher) relative(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "Assets" || !strings.HasPrefix(rel, "Assets/") {
		return "", false
	}
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".tmp") {
		return "", false
	}
	if w.opts.Ignore(rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) flush(ctx context.Context, pending *pendingChanges) {
	batch := pending.drain()
	if batch.IsEmpty() {
		return
	}
	ctx = logging.WithNewCorrelationID(ctx)
	w.log.Debug(ctx, "Dispatching changes", slogger.Fields{
		"created":  len(batch.Created),
		"modified": len(batch.Modified),
		"deleted":  len(batch.Deleted),
	})

	err := w.handler.HandleChanges(ctx, batch)

	w.mu.Lock()
	w.stats.Batches++
	w.stats.LastBatchAt = time.Now()
	if err != nil {
		w.stats.HandlerErrors++
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Error(ctx, "Failed to apply changes", slogger.Fields{"error": err.Error()})
	}
}
