// Package branch implements the branch registry: named pointers into the
// commit log plus the HEAD marker selecting the active branch. State lives
// in two human-inspectable files, branches.json and HEAD.
package branch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"relic/internal/commit"
	"relic/internal/vcserr"

	"go.uber.org/zap"
)

const (
	registryFile = "branches.json"
	headFile     = "HEAD"
)

// Info describes one branch for listing. Tip is empty when the branch has
// no commits yet.
type Info struct {
	Name   string
	Tip    commit.ID
	Active bool
}

type Registry struct {
	dir    string // the .relic directory
	logger *zap.Logger
}

func NewRegistry(dir string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{dir: dir, logger: logger}
}

// Init writes the initial registry: a single branch with no commits, set as
// HEAD.
func (r *Registry) Init(name string) error {
	if err := r.save(map[string]*string{name: nil}); err != nil {
		return err
	}
	return r.writeHead(name)
}

// Head returns the active branch name.
func (r *Registry) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, headFile))
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Tip returns the branch's current commit, which may be empty for a branch
// with no commits.
func (r *Registry) Tip(name string) (commit.ID, error) {
	branches, err := r.load()
	if err != nil {
		return "", err
	}
	tip, ok := branches[name]
	if !ok {
		return "", vcserr.BranchNotFound(name)
	}
	if tip == nil {
		return "", nil
	}
	return commit.ID(*tip), nil
}

// Create registers a new branch pointing at the active branch's current
// tip. Either the branch is fully created or the registry is unchanged.
func (r *Registry) Create(name string) error {
	branches, err := r.load()
	if err != nil {
		return err
	}
	if _, exists := branches[name]; exists {
		return vcserr.BranchExists(name)
	}

	head, err := r.Head()
	if err != nil {
		return err
	}
	source, ok := branches[head]
	if !ok {
		return vcserr.BranchNotFound(head)
	}

	branches[name] = source
	if err := r.save(branches); err != nil {
		return err
	}

	r.logger.Debug("branch created", zap.String("name", name), zap.String("from", head))
	return nil
}

// List returns every branch ordered by name, with the active one flagged.
func (r *Registry) List() ([]Info, error) {
	branches, err := r.load()
	if err != nil {
		return nil, err
	}
	head, err := r.Head()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(branches))
	for name, tip := range branches {
		info := Info{Name: name, Active: name == head}
		if tip != nil {
			info.Tip = commit.ID(*tip)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// SwitchTo validates the target branch and points HEAD at it. Clearing the
// staging index is the caller's half of the operation and runs under the
// same repository lock.
func (r *Registry) SwitchTo(name string) error {
	branches, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := branches[name]; !ok {
		return vcserr.BranchNotFound(name)
	}
	return r.writeHead(name)
}

// AdvanceTip points a branch at a new commit. Called only by the commit
// operation, after the commit record is durably written.
func (r *Registry) AdvanceTip(name string, id commit.ID) error {
	branches, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := branches[name]; !ok {
		return vcserr.BranchNotFound(name)
	}

	tip := string(id)
	branches[name] = &tip
	return r.save(branches)
}

func (r *Registry) load() (map[string]*string, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, registryFile))
	if err != nil {
		return nil, fmt.Errorf("reading branch registry: %w", err)
	}

	branches := make(map[string]*string)
	if err := json.Unmarshal(data, &branches); err != nil {
		return nil, fmt.Errorf("parsing branch registry: %w", err)
	}
	return branches, nil
}

// save replaces the registry atomically via temp file + rename.
func (r *Registry) save(branches map[string]*string) error {
	data, err := json.MarshalIndent(branches, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling branch registry: %w", err)
	}

	path := filepath.Join(r.dir, registryFile)
	tmp, err := os.CreateTemp(r.dir, ".branches-*")
	if err != nil {
		return fmt.Errorf("creating temp registry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing branch registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp registry: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing branch registry: %w", err)
	}
	return nil
}

func (r *Registry) writeHead(name string) error {
	path := filepath.Join(r.dir, headFile)
	tmp, err := os.CreateTemp(r.dir, ".head-*")
	if err != nil {
		return fmt.Errorf("creating temp HEAD: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(name + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing HEAD: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp HEAD: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing HEAD: %w", err)
	}
	return nil
}
