// Package watcher hot-reloads the registry's configuration file.
//
// Editors and deployment tools rewrite files with rename/remove dances, so
// the watcher watches the file's directory, filters events for the target
// path, debounces bursts, and re-adds the watch after the file is
// replaced. Reload failures keep the previous registry state (loads are
// atomic) and are logged, not fatal.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matt-riley/variantz"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a registry from a configuration file when it changes.
type Watcher struct {
	registry *variantz.Registry
	path     string
	logger   *slog.Logger
	debounce time.Duration

	// onReload, if set, runs after every reload attempt with its error.
	// The server uses it to keep metrics current.
	onReload func(error)

	fsWatcher *fsnotify.Watcher

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last file event before a
// reload fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnReload installs a callback invoked after each reload attempt.
func WithOnReload(fn func(error)) Option {
	return func(w *Watcher) { w.onReload = fn }
}

// New starts watching path and merging it into registry on change via
// ReloadConfig. Cancel ctx to stop watching.
func New(ctx context.Context, registry *variantz.Registry, path string, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		registry:  registry,
		path:      filepath.Clean(path),
		logger:    logger,
		debounce:  defaultDebounce,
		fsWatcher: fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	// Watch the directory: the file itself disappears during atomic
	// replaces and the watch would go with it.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run(ctx)
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	defer w.close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

// scheduleReload arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	err := w.registry.ReloadConfig(w.path)
	if err != nil {
		w.logger.Error("config reload rejected, keeping previous state",
			"path", w.path, "error", err)
	} else {
		w.logger.Info("config reloaded",
			"path", w.path,
			"flags", len(w.registry.Flags()),
			"variants", len(w.registry.Variants()))
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}

func (w *Watcher) close() {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	_ = w.fsWatcher.Close()
}
