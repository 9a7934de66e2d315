package diff

import (
	"sort"

	"relic/internal/content"
)

// Modification is a path present in both snapshots with differing content.
// The line-level diff is filled in by the caller once contents have been
// resolved; it stays nil for binary content.
type Modification struct {
	Path   string
	OldRef content.Ref
	NewRef content.Ref
	Binary bool
	Diff   *FileDiff
}

// Result is the set-level comparison of two snapshots. All slices are in
// lexical path order so output is reproducible across runs.
type Result struct {
	Added    []string
	Removed  []string
	Modified []Modification
}

// Empty reports whether the two snapshots were identical.
func (r *Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Modified) == 0
}

// Compare computes set algebra over the path keys of two snapshots:
// paths only in b are added, paths only in a are removed, and common paths
// with unequal refs are modified.
func Compare(a, b map[string]content.Ref) *Result {
	result := &Result{}

	for path, newRef := range b {
		oldRef, ok := a[path]
		if !ok {
			result.Added = append(result.Added, path)
			continue
		}
		if oldRef != newRef {
			result.Modified = append(result.Modified, Modification{
				Path:   path,
				OldRef: oldRef,
				NewRef: newRef,
			})
		}
	}

	for path := range a {
		if _, ok := b[path]; !ok {
			result.Removed = append(result.Removed, path)
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	sort.Slice(result.Modified, func(i, j int) bool {
		return result.Modified[i].Path < result.Modified[j].Path
	})

	return result
}
