package commit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"relic/internal/content"
	"relic/internal/vcserr"

	"go.uber.org/zap"
)

// Log is the append-only commit store. Records are never rewritten or
// deleted once appended.
type Log struct {
	dir    string
	logger *zap.Logger
}

func NewLog(dir string, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{dir: dir, logger: logger}
}

// Append writes a new commit with the given parent, message and snapshot at
// the supplied timestamp, and returns it. An empty snapshot is rejected; an
// ID collision with an existing record is an integrity failure and leaves
// the log untouched.
func (l *Log) Append(parent ID, message string, snapshot map[string]content.Ref, ts time.Time) (*Commit, error) {
	if len(snapshot) == 0 {
		return nil, vcserr.EmptySnapshot()
	}

	id := DeriveID(parent, message, ts, snapshot)

	if _, err := os.Stat(l.recordPath(id)); err == nil {
		return nil, vcserr.Integrity(fmt.Sprintf("commit id collision: %s", id.Short()), nil)
	}

	c := &Commit{
		ID:        id,
		Parent:    parent,
		Message:   message,
		Timestamp: ts,
		Snapshot:  snapshot,
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling commit: %w", err)
	}

	// Write-then-rename so a crash never leaves a truncated record behind.
	tmp, err := os.CreateTemp(l.dir, ".commit-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("writing commit record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("closing commit record: %w", err)
	}
	if err := os.Rename(tmpName, l.recordPath(id)); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("committing record: %w", err)
	}

	l.logger.Debug("commit appended",
		zap.String("id", id.Short()),
		zap.String("parent", parent.Short()),
		zap.Int("files", len(snapshot)))

	return c, nil
}

// Get loads a commit by ID.
func (l *Log) Get(id ID) (*Commit, error) {
	data, err := os.ReadFile(l.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vcserr.CommitNotFound(string(id))
		}
		return nil, fmt.Errorf("reading commit record: %w", err)
	}

	var c Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing commit %s: %w", id.Short(), err)
	}
	return &c, nil
}

// Walk visits the commit and then its ancestors, newest first, until visit
// returns false, the root is reached, or a link fails to resolve. A broken
// link ends the walk silently, matching history-listing behavior.
func (l *Log) Walk(id ID, visit func(*Commit) bool) error {
	for id != "" {
		c, err := l.Get(id)
		if err != nil {
			if vcserr.IsKind(err, vcserr.KindCommitNotFound) {
				return nil // silent truncation
			}
			return err
		}
		if !visit(c) {
			return nil
		}
		id = c.Parent
	}
	return nil
}

// History collects the chain starting at id, newest first.
func (l *Log) History(id ID) ([]*Commit, error) {
	var commits []*Commit
	err := l.Walk(id, func(c *Commit) bool {
		commits = append(commits, c)
		return true
	})
	if err != nil {
		return nil, err
	}
	return commits, nil
}

// IDs lists every commit ID present in the log, in lexical order.
func (l *Log) IDs() ([]ID, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}

	var ids []ID
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, ID(name[:len(name)-len(".json")]))
	}
	return ids, nil
}

func (l *Log) recordPath(id ID) string {
	return filepath.Join(l.dir, string(id)+".json")
}
