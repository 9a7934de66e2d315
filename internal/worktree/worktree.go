// Package worktree is the working-directory collaborator: it enumerates
// non-ignored files in a reproducible order and reads/writes file bytes on
// behalf of the core.
package worktree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"relic/internal/ignore"
	"relic/internal/vcserr"

	"go.uber.org/zap"
)

// MetaDir is the repository metadata directory, always excluded from scans.
const MetaDir = ".relic"

type Worktree struct {
	root    string
	matcher *ignore.Matcher
	logger  *zap.Logger
}

func New(root string, matcher *ignore.Matcher, logger *zap.Logger) *Worktree {
	if matcher == nil {
		matcher = ignore.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worktree{root: root, matcher: matcher, logger: logger}
}

func (w *Worktree) Root() string {
	return w.root
}

// ShouldIgnore reports whether a repository-relative path is excluded from
// version control: metadata, hidden entries, and ignore-file matches.
func (w *Worktree) ShouldIgnore(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == MetaDir || strings.HasPrefix(part, ".") {
			return true
		}
	}
	return w.matcher.Match(rel)
}

// Scan returns all tracked-eligible files as repository-relative paths in
// lexical order.
func (w *Worktree) Scan() ([]string, error) {
	var paths []string

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if w.ShouldIgnore(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if w.ShouldIgnore(rel) {
			return nil
		}

		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking worktree: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Read returns the bytes and file info of a repository-relative path.
func (w *Worktree) Read(rel string) ([]byte, fs.FileInfo, error) {
	abs := filepath.Join(w.root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, vcserr.FileNotFound(rel)
		}
		return nil, nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%s is a directory", rel)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, info, nil
}

// Write places content at a repository-relative path, creating parent
// directories as needed.
func (w *Worktree) Write(rel string, data []byte, mode fs.FileMode) error {
	abs := filepath.Join(w.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("creating directories for %s: %w", rel, err)
	}
	if mode == 0 {
		mode = 0644
	}
	if err := os.WriteFile(abs, data, mode); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}

	w.logger.Debug("worktree file written", zap.String("path", rel), zap.Int("size", len(data)))
	return nil
}

// Exists reports whether a repository-relative path exists as a file.
func (w *Worktree) Exists(rel string) bool {
	info, err := os.Stat(filepath.Join(w.root, filepath.FromSlash(rel)))
	return err == nil && !info.IsDir()
}
