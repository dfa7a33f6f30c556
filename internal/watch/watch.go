// Package watch fulfils spec.md §1's "filesystem change watching"
// external port with a concrete fsnotify-backed adapter: it debounces
// writes/creates/removes under the project root and re-triggers the
// same AST/meta recompute path the `cascade index` CLI command uses.
package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cascadehq/cascade/internal/logging"
	"github.com/cascadehq/cascade/internal/project"
	"github.com/fsnotify/fsnotify"
)

// Watcher reindexes a project's files as they change on disk,
// debouncing bursts of writes the way editors/build tools produce
// them (a save often fires write+chmod in quick succession).
type Watcher struct {
	proj       *project.Project
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	ignoreDirs []string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}

	pendingMu sync.Mutex
	pending   map[string]time.Time
}

// New builds a Watcher over proj. debounceMs <= 0 uses a 300ms default,
// matching internal/config's documented default.
func New(proj *project.Project, debounceMs int, ignoreDirs []string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounceMs <= 0 {
		debounceMs = 300
	}
	return &Watcher{
		proj:       proj,
		fsWatcher:  fsWatcher,
		debounce:   time.Duration(debounceMs) * time.Millisecond,
		ignoreDirs: ignoreDirs,
		stopCh:     make(chan struct{}),
		pending:    make(map[string]time.Time),
	}, nil
}

// Start begins watching proj.Root and its subdirectories. It is a
// no-op if already running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	if err := w.addDirectories(); err != nil {
		return err
	}

	go w.processEvents()
	go w.processDebounced(ctx)
	return nil
}

// Stop halts watching and releases the underlying fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)
	return w.fsWatcher.Close()
}

// IsRunning reports whether the watcher is actively processing events.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) addDirectories() error {
	return filepath.WalkDir(w.proj.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.proj.Root, path)
		rel = filepath.ToSlash(rel)
		if w.shouldSkip(rel) {
			return filepath.SkipDir
		}
		if addErr := w.fsWatcher.Add(path); addErr != nil {
			logging.Get().Warn().Err(addErr).Str("dir", path).Msg("cannot watch directory")
		}
		return nil
	})
}

func (w *Watcher) shouldSkip(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		for _, ig := range w.ignoreDirs {
			if seg == ig {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.pendingMu.Lock()
			w.pending[event.Name] = time.Now()
			w.pendingMu.Unlock()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Get().Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	now := time.Now()
	for abs, ts := range w.pending {
		if now.Sub(ts) < w.debounce {
			continue
		}
		delete(w.pending, abs)

		rel, err := filepath.Rel(w.proj.Root, abs)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if err := w.proj.IndexFile(ctx, rel); err != nil {
			logging.Get().Warn().Err(err).Str("file", rel).Msg("reindex failed")
		}
	}
}
