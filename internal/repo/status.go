package repo

import (
	"sort"

	"relic/internal/content"
)

// Status summarizes the working tree against the staging index and the
// active branch's snapshot. All slices are in lexical order.
type Status struct {
	Branch    string
	Staged    []string // in the index
	Modified  []string // worktree content differs from the index or HEAD snapshot
	Untracked []string // neither staged nor in the HEAD snapshot
	Deleted   []string // staged or committed but missing from the worktree
}

// Clean reports whether nothing differs from the committed state.
func (s *Status) Clean() bool {
	return len(s.Staged) == 0 && len(s.Modified) == 0 &&
		len(s.Untracked) == 0 && len(s.Deleted) == 0
}

// Status computes the working-tree status. Contents are hashed in memory;
// nothing is written to the store.
func (r *Repository) Status() (*Status, error) {
	head, err := r.branches.Head()
	if err != nil {
		return nil, err
	}
	tip, err := r.branches.Tip(head)
	if err != nil {
		return nil, err
	}
	headSnapshot, err := r.snapshotAt(tip)
	if err != nil {
		return nil, err
	}

	ix, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	staged := ix.Snapshot()

	paths, err := r.tree.Scan()
	if err != nil {
		return nil, err
	}

	status := &Status{Branch: head}
	inTree := make(map[string]bool, len(paths))

	for _, path := range paths {
		inTree[path] = true

		data, _, err := r.tree.Read(path)
		if err != nil {
			return nil, err
		}
		ref := content.Hash(data)

		stagedRef, isStaged := staged[path]
		headRef, isTracked := headSnapshot[path]

		switch {
		case isStaged:
			if ref != stagedRef {
				status.Modified = append(status.Modified, path)
			}
		case isTracked:
			if ref != headRef {
				status.Modified = append(status.Modified, path)
			}
		default:
			status.Untracked = append(status.Untracked, path)
		}
	}

	for path := range staged {
		status.Staged = append(status.Staged, path)
		if !inTree[path] {
			status.Deleted = append(status.Deleted, path)
		}
	}
	for path := range headSnapshot {
		if _, isStaged := staged[path]; isStaged {
			continue
		}
		if !inTree[path] {
			status.Deleted = append(status.Deleted, path)
		}
	}

	sort.Strings(status.Staged)
	sort.Strings(status.Modified)
	sort.Strings(status.Untracked)
	sort.Strings(status.Deleted)
	return status, nil
}
