package repo

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"relic/internal/vcserr"
	"relic/internal/worktree"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Clone copies the repository — metadata, blobs, commit log and the
// non-hidden working tree — to target. The blob metadata database is moved
// through badger's backup stream so the copy is consistent even while this
// process holds the database open.
func (r *Repository) Clone(target string) error {
	if _, err := os.Stat(target); err == nil {
		return vcserr.TargetExists(target)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking target: %w", err)
	}

	release, err := r.lock()
	if err != nil {
		return err
	}
	defer release()

	targetMeta := filepath.Join(target, worktree.MetaDir)
	if err := os.MkdirAll(targetMeta, 0755); err != nil {
		return fmt.Errorf("creating target: %w", err)
	}

	// Flat metadata files plus the commit log and blob directory.
	for _, name := range []string{"HEAD", "branches.json", indexFile, configFile} {
		if err := copyFile(filepath.Join(r.metaDir, name), filepath.Join(targetMeta, name)); err != nil {
			return fmt.Errorf("copying %s: %w", name, err)
		}
	}
	for _, dir := range []string{commitsDir, objectsDir} {
		if err := copyDir(filepath.Join(r.metaDir, dir), filepath.Join(targetMeta, dir)); err != nil {
			return fmt.Errorf("copying %s: %w", dir, err)
		}
	}

	if err := r.cloneMetaDB(filepath.Join(targetMeta, metaDBDir)); err != nil {
		return err
	}

	// Ignore file, then the worktree itself. Hidden entries stay behind,
	// the metadata directory included.
	src := filepath.Join(r.root, ignoreFile)
	if _, err := os.Stat(src); err == nil {
		if err := copyFile(src, filepath.Join(target, ignoreFile)); err != nil {
			return fmt.Errorf("copying ignore file: %w", err)
		}
	}
	if err := r.cloneWorktree(target); err != nil {
		return err
	}

	r.logger.Info("repository cloned", zap.String("target", target))
	return nil
}

// cloneMetaDB streams the badger database into a fresh one at dbPath.
func (r *Repository) cloneMetaDB(dbPath string) error {
	var backup bytes.Buffer
	if _, err := r.db.Backup(&backup, 0); err != nil {
		return fmt.Errorf("backing up metadata database: %w", err)
	}

	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening target database: %w", err)
	}
	defer db.Close()

	if err := db.Load(&backup, 16); err != nil {
		return fmt.Errorf("restoring metadata database: %w", err)
	}
	return nil
}

// cloneWorktree copies every non-hidden file under the root. Ignore
// patterns are deliberately not applied here: a clone replicates the whole
// visible tree, matching the source repository's behavior.
func (r *Repository) cloneWorktree(target string) error {
	return filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if strings.HasPrefix(part, ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		dest := filepath.Join(target, rel)
		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}
		return copyFile(path, dest)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyDir(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}
