package repo

import (
	"relic/internal/worktree"

	"go.uber.org/zap"
)

// Watch observes the working tree and keeps the staging index in step:
// created or written files are re-staged, removed files are unstaged. It
// blocks until stop is closed or the watcher shuts down.
func (r *Repository) Watch(stop <-chan struct{}) error {
	watcher, err := worktree.NewWatcher(r.tree, r.logger.Named("watch"))
	if err != nil {
		return err
	}
	defer watcher.Close()

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			switch event.Kind {
			case worktree.FileChanged:
				if err := r.Stage(event.Path); err != nil {
					r.logger.Warn("auto-stage failed",
						zap.String("path", event.Path), zap.Error(err))
				}
			case worktree.FileRemoved:
				if err := r.unstage(event.Path); err != nil {
					r.logger.Warn("auto-unstage failed",
						zap.String("path", event.Path), zap.Error(err))
				}
			}
		}
	}
}

func (r *Repository) unstage(path string) error {
	release, err := r.lock()
	if err != nil {
		return err
	}
	defer release()

	ix, err := r.loadIndex()
	if err != nil {
		return err
	}
	if !ix.Unstage(path) {
		return nil
	}
	return ix.Save()
}
