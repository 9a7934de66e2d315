// Package merge reconciles two snapshots. This is a two-way merge: no
// common ancestor is consulted, so any byte-level divergence on a shared
// path is an unconditional conflict.
package merge

import (
	"sort"

	"relic/internal/content"
)

// Result is the outcome of merging a source snapshot into a target.
type Result struct {
	// Updated is the target snapshot with all non-conflicting source
	// additions applied. Target-only paths are never removed.
	Updated map[string]content.Ref
	// Added lists the paths copied over from the source, in lexical order.
	Added []string
	// Conflicts lists paths whose content differs between the two sides,
	// in lexical order. The target's content for those paths is unchanged.
	Conflicts []string
}

// Complete reports whether the merge finished without conflicts. An
// incomplete merge must be resolved out-of-band and re-run.
func (r *Result) Complete() bool {
	return len(r.Conflicts) == 0
}

// Merge applies the source snapshot onto the target:
//
//   - paths absent from the target are copied from the source
//   - paths with equal refs on both sides are no-ops
//   - paths with differing refs are recorded as conflicts, target wins
//
// Neither input is mutated.
func Merge(source, target map[string]content.Ref) *Result {
	result := &Result{
		Updated: make(map[string]content.Ref, len(target)+len(source)),
	}

	for path, ref := range target {
		result.Updated[path] = ref
	}

	for path, sourceRef := range source {
		targetRef, ok := target[path]
		switch {
		case !ok:
			result.Updated[path] = sourceRef
			result.Added = append(result.Added, path)
		case targetRef == sourceRef:
			// identical content, nothing to reconcile
		default:
			result.Conflicts = append(result.Conflicts, path)
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Conflicts)
	return result
}
