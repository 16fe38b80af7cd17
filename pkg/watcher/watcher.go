// Package watcher turns raw fsnotify events into per-context activity records.
// Each registered context lists watch directories; events under a directory
// are attributed to that context, filtered against ignore patterns, debounced
// per path, and forwarded to the activity tracker.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"relay/pkg/activity"
)

// defaultDebounce drops repeat events for the same path fired within this
// interval.
const defaultDebounce = 1 * time.Second

// ignoreFragments are path fragments that mark editor, VCS, and cache noise.
var ignoreFragments = []string{
	".git",
	"node_modules",
	"__pycache__",
	".DS_Store",
	".venv",
	"venv",
	".relay",
}

// ignoreSuffixes are file suffixes never worth recording.
var ignoreSuffixes = []string{
	".log",
	".pyc",
	".swp",
	".tmp",
	"~",
}

// Recorder receives surviving events. *activity.Tracker satisfies it.
type Recorder interface {
	Record(ctx, path string, kind activity.EventKind)
}

// Logger receives setup and runtime diagnostics. The daemon's log file writer
// satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

// Watcher owns one fsnotify watcher covering every context's directories.
type Watcher struct {
	fsw      *fsnotify.Watcher
	recorder Recorder
	logger   Logger

	// contextOf maps each watched root to its owning context. Longest-prefix
	// match attributes events under nested roots to the nearest one.
	mu        sync.Mutex
	contextOf map[string]string
	lastEvent map[string]time.Time
	debounce  time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup

	// nowFunc allows tests to control debounce timing.
	nowFunc func() time.Time
}

// New creates a watcher forwarding surviving events to rec. dirs maps context
// ID to absolute watch roots; missing directories are skipped silently, and a
// root whose watch fails to establish is logged and skipped without aborting
// the rest.
func New(dirs map[string][]string, rec Recorder, logger Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:       fsw,
		recorder:  rec,
		logger:    logger,
		contextOf: make(map[string]string),
		lastEvent: make(map[string]time.Time),
		debounce:  defaultDebounce,
		stopCh:    make(chan struct{}),
		nowFunc:   time.Now,
	}

	for ctx, roots := range dirs {
		for _, root := range roots {
			info, err := os.Stat(root)
			if err != nil || !info.IsDir() {
				continue // context may have no on-disk footprint yet
			}
			if err := w.addRecursive(root, ctx); err != nil {
				w.logf("watcher: failed to watch %s for %s: %v", root, ctx, err)
			}
		}
	}

	return w, nil
}

// SetDebounce overrides the default per-path debounce interval. Call before
// Start; values <= 0 are ignored.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Start launches the event loop. Stop terminates it.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// addRecursive registers root and all its subdirectories for ctx.
func (w *Watcher) addRecursive(root, ctx string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree: skip, keep walking siblings
		}
		if !d.IsDir() {
			return nil
		}
		if shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logf("watcher: failed to watch %s: %v", path, err)
			return nil
		}
		w.mu.Lock()
		w.contextOf[path] = ctx
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logf("watcher: %v", err)
		}
	}
}

// handle filters, debounces, and forwards one raw event.
func (w *Watcher) handle(event fsnotify.Event) {
	if shouldIgnore(event.Name) {
		return
	}

	kind, ok := eventKind(event)
	if !ok {
		return
	}

	// New directories join the recursive watch under their root's context.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if ctx := w.contextFor(event.Name); ctx != "" {
				if err := w.addRecursive(event.Name, ctx); err != nil {
					w.logf("watcher: failed to watch new dir %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	ctx := w.contextFor(event.Name)
	if ctx == "" {
		return
	}

	if !w.passDebounce(event.Name) {
		return
	}
	w.recorder.Record(ctx, event.Name, kind)
}

// passDebounce reports whether the event for path should pass. A path that
// fired within the debounce interval is dropped.
func (w *Watcher) passDebounce(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.nowFunc()
	if last, ok := w.lastEvent[path]; ok && now.Sub(last) < w.debounce {
		return false
	}
	w.lastEvent[path] = now
	return true
}

// contextFor finds the owning context via longest-prefix match over the
// watched roots.
func (w *Watcher) contextFor(path string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	best, bestLen := "", -1
	for root, ctx := range w.contextOf {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			if len(root) > bestLen {
				best, bestLen = ctx, len(root)
			}
		}
	}
	return best
}

func (w *Watcher) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}

// eventKind maps an fsnotify op onto a recorded kind. Chmod-only events carry
// no content signal and are dropped.
func eventKind(event fsnotify.Event) (activity.EventKind, bool) {
	switch {
	case event.Has(fsnotify.Create):
		return activity.KindCreated, true
	case event.Has(fsnotify.Write), event.Has(fsnotify.Rename):
		return activity.KindModified, true
	case event.Has(fsnotify.Remove):
		return activity.KindDeleted, true
	default:
		return "", false
	}
}

func shouldIgnore(path string) bool {
	for _, frag := range ignoreFragments {
		if strings.Contains(path, string(filepath.Separator)+frag+string(filepath.Separator)) ||
			strings.HasSuffix(path, string(filepath.Separator)+frag) ||
			filepath.Base(path) == frag {
			return true
		}
	}
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
