// Package watcher re-runs targets when their source images change.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/giobyte8/picturefill/internal/models"
	"github.com/giobyte8/picturefill/internal/sources"
)

// DefaultDebounce is how long a target must stay quiet before it runs.
const DefaultDebounce = 500 * time.Millisecond

// RunFunc runs the named target.
type RunFunc func(ctx context.Context, target string) error

type watchedTarget struct {
	name  string
	roots []string
	dests []string
}

// Watcher monitors the source directories of a set of targets.
type Watcher struct {
	targets  []watchedTarget
	run      RunFunc
	fsw      *fsnotify.Watcher
	Debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher prepares a watcher for the named targets of taskFile.
func NewWatcher(
	taskFile *models.TaskFile,
	names []string,
	run RunFunc,
) (*Watcher, error) {
	if len(names) == 0 {
		names = taskFile.TargetNames()
	}

	targets := make([]watchedTarget, 0, len(names))
	for _, name := range names {
		target, ok := taskFile.Targets[name]
		if !ok {
			return nil, fmt.Errorf("unknown target %q", name)
		}
		targets = append(targets, newWatchedTarget(name, target))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		targets:  targets,
		run:      run,
		fsw:      fsw,
		Debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
	}, nil
}

func newWatchedTarget(name string, target models.Target) watchedTarget {
	wt := watchedTarget{name: name}
	for _, group := range target.Files {
		wt.dests = append(wt.dests, filepath.Clean(group.Dest))
		for _, src := range group.Src {
			wt.roots = append(wt.roots, watchRoot(src))
		}
	}
	return wt
}

// watchRoot returns the directory to watch for a src entry: the entry
// itself for directories, otherwise its parent. Glob patterns are cut
// at their first meta character.
func watchRoot(src string) string {
	if i := strings.IndexAny(src, `*?[\`); i >= 0 {
		return filepath.Clean(filepath.Dir(src[:i] + "x"))
	}

	if info, err := os.Stat(src); err == nil && info.IsDir() {
		return filepath.Clean(src)
	}
	return filepath.Clean(filepath.Dir(src))
}

// Run watches until ctx is done. Runs triggered by file changes are
// executed one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	for _, wt := range w.targets {
		for _, root := range wt.roots {
			w.addRecursive(root)
		}
	}

	triggers := make(chan string, len(w.targets))
	go w.processEvents(ctx, triggers)

	for {
		select {
		case name := <-triggers:
			slog.Info("Sources changed, running target", "target", name)
			if err := w.run(ctx, name); err != nil {
				slog.Error("Target run failed", "target", name, "error", err)
			}

		case <-ctx.Done():
			w.stopTimers()
			return nil
		}
	}
}

func (w *Watcher) addRecursive(root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Cannot watch path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		if err := w.fsw.Add(path); err != nil {
			slog.Warn("Cannot watch directory", "path", path, "error", err)
			return nil
		}
		slog.Debug("Watching directory", "path", path)
		return nil
	})
	if err != nil {
		slog.Warn("Failed to walk watch root", "path", root, "error", err)
	}
}

func (w *Watcher) processEvents(ctx context.Context, triggers chan<- string) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event, triggers)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("Watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(
	ctx context.Context,
	event fsnotify.Event,
	triggers chan<- string,
) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addRecursive(event.Name)
			return
		}
	}

	if !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Rename) {
		return
	}
	if !sources.AllowedExt(event.Name) {
		return
	}

	for _, name := range w.Affected(event.Name) {
		w.schedule(ctx, name, triggers)
	}
}

// Affected returns the targets whose sources include path. Paths inside
// a target's destination directories are ignored so written variants
// never trigger another run.
func (w *Watcher) Affected(path string) []string {
	path = filepath.Clean(path)

	var names []string
	for _, wt := range w.targets {
		if underAny(path, wt.dests) || !underAny(path, wt.roots) {
			continue
		}
		names = append(names, wt.name)
	}
	return names
}

func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(
	ctx context.Context,
	name string,
	triggers chan<- string,
) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.timers[name]; exists {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.Debounce, func() {
		w.mu.Lock()
		if w.timers[name] == timer {
			delete(w.timers, name)
		}
		w.mu.Unlock()

		select {
		case triggers <- name:
		case <-ctx.Done():
		}
	})
	w.timers[name] = timer
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for name, timer := range w.timers {
		timer.Stop()
		delete(w.timers, name)
	}
}
