package repo

import (
	"fmt"
	"time"

	"relic/internal/branch"
	"relic/internal/commit"
	"relic/internal/content"
	"relic/internal/diff"
	"relic/internal/index"
	"relic/internal/merge"
	"relic/internal/vcserr"

	"go.uber.org/zap"
)

// Stage adds a working-tree file to the staging index: its content goes
// into the content store, the index records the ref plus captured-at
// metadata.
func (r *Repository) Stage(path string) error {
	release, err := r.lock()
	if err != nil {
		return err
	}
	defer release()

	data, info, err := r.tree.Read(path)
	if err != nil {
		return err
	}

	ref, err := r.store.Put(data)
	if err != nil {
		return fmt.Errorf("storing content for %s: %w", path, err)
	}

	ix, err := r.loadIndex()
	if err != nil {
		return err
	}
	ix.Stage(path, index.Entry{
		Ref:     ref,
		Size:    info.Size(),
		Mode:    uint32(info.Mode()),
		ModTime: info.ModTime(),
	})
	if err := ix.Save(); err != nil {
		return err
	}

	r.logger.Info("staged", zap.String("path", path), zap.String("ref", ref.Short()))
	return nil
}

// Commit converts the staging index into a new commit on the active
// branch. The snapshot recorded is the parent's full tree overlaid with the
// staged entries. Write ordering is the concurrency invariant: the commit
// record is durable before the tip advances, and the tip advances before
// the index clears.
func (r *Repository) Commit(message string) (*commit.Commit, error) {
	release, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer release()

	ix, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	if ix.Len() == 0 {
		return nil, vcserr.EmptySnapshot()
	}

	head, err := r.branches.Head()
	if err != nil {
		return nil, err
	}
	tip, err := r.branches.Tip(head)
	if err != nil {
		return nil, err
	}

	parentSnapshot, err := r.snapshotAt(tip)
	if err != nil {
		// A tip pointing at a missing commit means the graph is damaged;
		// refuse to build on it.
		if vcserr.IsKind(err, vcserr.KindCommitNotFound) {
			return nil, vcserr.Integrity(
				fmt.Sprintf("branch %s tip %s references a missing commit", head, tip.Short()), err)
		}
		return nil, err
	}

	snapshot := make(map[string]content.Ref, len(parentSnapshot)+ix.Len())
	for path, ref := range parentSnapshot {
		snapshot[path] = ref
	}
	for path, ref := range ix.Snapshot() {
		snapshot[path] = ref
	}

	c, err := r.log.Append(tip, message, snapshot, time.Now())
	if err != nil {
		return nil, err
	}

	if err := r.branches.AdvanceTip(head, c.ID); err != nil {
		return nil, err
	}

	ix.Clear()
	if err := ix.Save(); err != nil {
		return nil, err
	}

	r.logger.Info("committed",
		zap.String("id", c.ID.Short()),
		zap.String("branch", head),
		zap.Int("files", len(snapshot)))

	return c, nil
}

// History returns the commit chain of a branch, newest first. An empty
// name means the active branch; a branch with no commits yields an empty
// history.
func (r *Repository) History(name string) ([]*commit.Commit, error) {
	if name == "" {
		head, err := r.branches.Head()
		if err != nil {
			return nil, err
		}
		name = head
	}

	tip, err := r.branches.Tip(name)
	if err != nil {
		return nil, err
	}
	if tip == "" {
		return nil, nil
	}
	return r.log.History(tip)
}

// CreateBranch registers a new branch at the active branch's current tip.
func (r *Repository) CreateBranch(name string) error {
	release, err := r.lock()
	if err != nil {
		return err
	}
	defer release()

	if err := r.branches.Create(name); err != nil {
		return err
	}
	r.logger.Info("branch created", zap.String("name", name))
	return nil
}

// ListBranches returns all branches ordered by name.
func (r *Repository) ListBranches() ([]branch.Info, error) {
	return r.branches.List()
}

// SwitchBranch makes name the active branch and clears the staging index.
// The index is cleared before HEAD moves so an interruption between the two
// writes can never leave staged entries pointing at a superseded branch.
func (r *Repository) SwitchBranch(name string) error {
	release, err := r.lock()
	if err != nil {
		return err
	}
	defer release()

	if _, err := r.branches.Tip(name); err != nil {
		return err
	}

	ix, err := r.loadIndex()
	if err != nil {
		return err
	}
	ix.Clear()
	if err := ix.Save(); err != nil {
		return err
	}

	if err := r.branches.SwitchTo(name); err != nil {
		return err
	}

	r.logger.Info("switched branch", zap.String("name", name))
	return nil
}

// Diff compares two refs (branch names or commit IDs) and returns the
// set-level result with line-level diffs attached for modified text files.
func (r *Repository) Diff(refA, refB string) (*diff.Result, error) {
	snapA, err := r.resolveRef(refA)
	if err != nil {
		return nil, err
	}
	snapB, err := r.resolveRef(refB)
	if err != nil {
		return nil, err
	}

	result := diff.Compare(snapA, snapB)

	engine := diff.NewEngine(r.cfg.Diff.ContextLines)
	for i := range result.Modified {
		mod := &result.Modified[i]

		oldContent, err := r.store.Get(mod.OldRef)
		if err != nil {
			return nil, fmt.Errorf("resolving %s at %s: %w", mod.Path, mod.OldRef.Short(), err)
		}
		newContent, err := r.store.Get(mod.NewRef)
		if err != nil {
			return nil, fmt.Errorf("resolving %s at %s: %w", mod.Path, mod.NewRef.Short(), err)
		}

		if diff.IsBinary(oldContent) || diff.IsBinary(newContent) {
			mod.Binary = true // report as differing, no line diff
			continue
		}
		mod.Diff = engine.Diff(oldContent, newContent)
	}

	return result, nil
}

// Merge reconciles the source branch's snapshot into the target branch's.
// The engine itself is pure; when the merge completes without conflicts and
// the target is the active branch, non-conflicting additions are written
// into the working tree and staged, ready for the caller to commit.
// Conflicted paths are never overwritten.
func (r *Repository) Merge(source, target string) (*merge.Result, error) {
	release, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer release()

	sourceTip, err := r.branches.Tip(source)
	if err != nil {
		return nil, err
	}
	targetTip, err := r.branches.Tip(target)
	if err != nil {
		return nil, err
	}

	sourceSnap, err := r.snapshotAt(sourceTip)
	if err != nil {
		return nil, err
	}
	targetSnap, err := r.snapshotAt(targetTip)
	if err != nil {
		return nil, err
	}

	result := merge.Merge(sourceSnap, targetSnap)

	head, err := r.branches.Head()
	if err != nil {
		return nil, err
	}

	if result.Complete() && target == head && len(result.Added) > 0 {
		ix, err := r.loadIndex()
		if err != nil {
			return nil, err
		}
		for _, path := range result.Added {
			ref := result.Updated[path]
			data, err := r.store.Get(ref)
			if err != nil {
				return nil, fmt.Errorf("resolving %s for merge: %w", path, err)
			}
			if err := r.tree.Write(path, data, 0); err != nil {
				return nil, err
			}
			ix.Stage(path, index.Entry{
				Ref:     ref,
				Size:    int64(len(data)),
				Mode:    0644,
				ModTime: time.Now(),
			})
		}
		if err := ix.Save(); err != nil {
			return nil, err
		}
	}

	r.logger.Info("merge evaluated",
		zap.String("source", source),
		zap.String("target", target),
		zap.Int("added", len(result.Added)),
		zap.Int("conflicts", len(result.Conflicts)))

	return result, nil
}

// AddIgnore appends patterns to the ignore file and reloads the matcher.
func (r *Repository) AddIgnore(patterns []string) error {
	if err := r.appendIgnore(patterns); err != nil {
		return err
	}
	return r.reloadIgnore()
}

// ListFiles enumerates the non-ignored working-tree files in lexical order.
func (r *Repository) ListFiles() ([]string, error) {
	return r.tree.Scan()
}
