// # internal/core/watcher/watcher.go
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"apexls/internal/shared/observability"
)

// Change is one debounced filesystem event the workspace cares about.
type Change struct {
	Path    string
	Removed bool
}

// Watcher follows Apex source files under a workspace root and reports
// debounced batches of changes. The caller decides what a change means
// (cache invalidation, reindex, removal).
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	include   []glob.Glob
	exclude   []glob.Glob
	onChange  func([]Change)

	pendingMu sync.Mutex
	pending   map[string]Change
	timer     *time.Timer
}

func New(debounce time.Duration, include, exclude []string, onChange func([]Change)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	includeGlobs, err := compileGlobs(include)
	if err != nil {
		return nil, err
	}
	excludeGlobs, err := compileGlobs(exclude)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		include:   includeGlobs,
		exclude:   excludeGlobs,
		onChange:  onChange,
		pending:   make(map[string]Change),
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Watch registers the root recursively and starts the event loop.
func (w *Watcher) Watch(root string) error {
	if err := w.watchRecursive(root); err != nil {
		return err
	}
	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if w.excludedDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.excludedDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}

			if !w.relevant(event.Name) {
				continue
			}

			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.scheduleChange(Change{Path: event.Name, Removed: true})
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.scheduleChange(Change{Path: event.Name})
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(c Change) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	// A removal followed by a re-create collapses to a plain change.
	w.pending[c.Path] = c

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	changes := make([]Change, 0, len(w.pending))
	for _, c := range w.pending {
		changes = append(changes, c)
	}
	w.pending = make(map[string]Change)
	w.pendingMu.Unlock()

	if len(changes) > 0 {
		w.onChange(changes)
	}
}

// relevant reports whether a path survives the include/exclude globs.
// Patterns match against the slash form of the path.
func (w *Watcher) relevant(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, g := range w.exclude {
		if g.Match(slashed) {
			return false
		}
	}
	if len(w.include) == 0 {
		return true
	}
	for _, g := range w.include {
		if g.Match(slashed) || g.Match(filepath.Base(slashed)) {
			return true
		}
	}
	return false
}

func (w *Watcher) excludedDir(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(slashed)
	if strings.HasPrefix(base, ".") && base != "." {
		return true
	}
	for _, g := range w.exclude {
		if g.Match(slashed) || g.Match(slashed+"/") {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
