// Package watch re-runs extraction when workbooks in the archive change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 2 * time.Second

// Watcher monitors an archive tree. fsnotify does not recurse, so every
// directory is added on start and new directories as they appear.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger

	// OnChange receives the changed paths of one debounce window, sorted.
	// It runs on the Run goroutine; events queue meanwhile.
	OnChange func(ctx context.Context, changed []string) error
}

// NewWatcher creates a watcher over root.
func NewWatcher(root string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{root: absRoot, watcher: fsWatcher, debounce: debounce, log: log}
	if err := w.addTree(absRoot); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

// Relevant reports whether a change to path can alter the extraction.
// Office lock files and temporary files are ignored.
func Relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~") || strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".xlsx")
}

// Run starts the watch loop. Blocks until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	pending := make(map[string]struct{})
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				pending[event.Name] = struct{}{}
				fire = time.After(w.debounce)
			}

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.log.Info("Archive changed", zap.Int("paths", len(changed)))
			if w.OnChange != nil {
				if err := w.OnChange(ctx, changed); err != nil {
					w.log.Error("Re-extraction failed", zap.Error(err))
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watch error", zap.Error(err))
		}
	}
}

// handleEvent starts watching new directories and reports whether the
// event counts as an archive change.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Warn("Cannot watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return true
		}
	}

	return Relevant(event.Name)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
