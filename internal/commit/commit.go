// Package commit implements the immutable, parent-linked commit log. Each
// commit is one JSON record under the commits directory, addressed by a
// content-derived ID.
package commit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"relic/internal/content"
)

// ID identifies a commit.
type ID string

func (id ID) String() string {
	return string(id)
}

// Short returns an abbreviated form for display.
func (id ID) Short() string {
	if len(id) > 7 {
		return string(id[:7])
	}
	return string(id)
}

// Commit is a single immutable history record. Snapshot is the complete
// tree at that point, not a delta.
type Commit struct {
	ID        ID                     `json:"id"`
	Parent    ID                     `json:"parent,omitempty"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Snapshot  map[string]content.Ref `json:"snapshot"`
}

// DeriveID computes a commit's identity from its parent, message, timestamp
// and snapshot. Snapshot entries are folded in sorted path order so the
// digest is deterministic regardless of map iteration.
func DeriveID(parent ID, message string, timestamp time.Time, snapshot map[string]content.Ref) ID {
	paths := make([]string, 0, len(snapshot))
	for path := range snapshot {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s", parent, message, timestamp.UTC().Format(time.RFC3339Nano))
	for _, path := range paths {
		fmt.Fprintf(&b, "|%s=%s", path, snapshot[path])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return ID(hex.EncodeToString(sum[:]))
}
