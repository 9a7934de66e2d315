// Package index implements the staging area: a durable mapping from
// repository-relative paths to pending content refs. The index file is
// replaced wholesale on save so readers never observe a partial write.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"relic/internal/content"
)

// Entry records a staged path: the content ref plus the file metadata
// captured at staging time.
type Entry struct {
	Ref     content.Ref `json:"ref"`
	Size    int64       `json:"size"`
	Mode    uint32      `json:"mode"`
	ModTime time.Time   `json:"mtime"`
}

type Index struct {
	path    string
	entries map[string]Entry
}

// Create writes an empty index file. Called once at repository init.
func Create(path string) error {
	ix := &Index{path: path, entries: make(map[string]Entry)}
	return ix.Save()
}

// Load reads the index file from disk.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing index: %w", err)
	}

	return &Index{path: path, entries: entries}, nil
}

// Stage inserts or overwrites the entry for path.
func (ix *Index) Stage(path string, entry Entry) {
	ix.entries[path] = entry
}

// Unstage drops the entry for path, reporting whether it was present.
func (ix *Index) Unstage(path string) bool {
	_, ok := ix.entries[path]
	delete(ix.entries, path)
	return ok
}

// Len returns the number of staged entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Snapshot returns the staged path → ref mapping.
func (ix *Index) Snapshot() map[string]content.Ref {
	snap := make(map[string]content.Ref, len(ix.entries))
	for path, entry := range ix.entries {
		snap[path] = entry.Ref
	}
	return snap
}

// Entries returns a copy of the staged entries keyed by path.
func (ix *Index) Entries() map[string]Entry {
	out := make(map[string]Entry, len(ix.entries))
	for path, entry := range ix.entries {
		out[path] = entry
	}
	return out
}

// Paths returns the staged paths in lexical order.
func (ix *Index) Paths() []string {
	paths := make([]string, 0, len(ix.entries))
	for path := range ix.entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Clear empties the index in memory. Save makes it durable.
func (ix *Index) Clear() {
	ix.entries = make(map[string]Entry)
}

// Save writes the index atomically: marshal to a temp file in the same
// directory, then rename over the old one.
func (ix *Index) Save() error {
	data, err := json.MarshalIndent(ix.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(ix.path), ".index-*")
	if err != nil {
		return fmt.Errorf("creating temp index: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp index: %w", err)
	}

	if err := os.Rename(tmpName, ix.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing index: %w", err)
	}
	return nil
}
