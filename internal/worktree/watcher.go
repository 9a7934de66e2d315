package worktree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// EventKind classifies a watcher notification.
type EventKind int

const (
	FileChanged EventKind = iota // created or written
	FileRemoved                  // removed or renamed away
)

// Event is a change observed in the working tree.
type Event struct {
	Kind EventKind
	Path string // repository-relative
}

// Watcher observes the working tree and reports changes to non-ignored
// files. Directories created while watching are added to the watch set.
type Watcher struct {
	tree    *Worktree
	watcher *fsnotify.Watcher
	events  chan Event
	logger  *zap.Logger
}

// NewWatcher starts watching the worktree. The caller consumes Events and
// must Close the watcher when done.
func NewWatcher(tree *Worktree, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		tree:    tree,
		watcher: fsw,
		events:  make(chan Event, 64),
		logger:  logger,
	}

	if err := w.addDirs(); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("registering watch directories: %w", err)
	}

	go w.loop()
	return w, nil
}

// Events returns the channel of observed changes. It is closed when the
// watcher shuts down.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// addDirs registers every non-ignored directory under the root.
func (w *Watcher) addDirs() error {
	return filepath.WalkDir(w.tree.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(w.tree.Root(), path)
		if err != nil {
			return err
		}
		if rel != "." && w.tree.ShouldIgnore(rel) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.events)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.tree.Root(), event.Name)
	if err != nil {
		w.logger.Error("getting relative path", zap.Error(err))
		return
	}
	rel = filepath.ToSlash(rel)

	if w.tree.ShouldIgnore(rel) {
		return
	}

	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Error("adding new directory to watcher", zap.Error(err))
			}
			return
		}
		w.events <- Event{Kind: FileChanged, Path: rel}

	case event.Op&fsnotify.Write == fsnotify.Write:
		w.events <- Event{Kind: FileChanged, Path: rel}

	case event.Op&fsnotify.Remove == fsnotify.Remove,
		event.Op&fsnotify.Rename == fsnotify.Rename:
		w.events <- Event{Kind: FileRemoved, Path: rel}
	}
}
