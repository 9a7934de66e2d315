// Package repo ties the core components together behind an explicit
// Repository context: content store, staging index, commit log and branch
// registry, plus the worktree collaborator. There is no ambient global
// state; every operation is a method on Repository.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"relic/internal/branch"
	"relic/internal/commit"
	"relic/internal/config"
	"relic/internal/content"
	"relic/internal/ignore"
	"relic/internal/index"
	"relic/internal/vcserr"
	"relic/internal/worktree"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// DefaultBranch is the branch created by Init.
const DefaultBranch = "main"

const (
	commitsDir = "commits"
	objectsDir = "objects"
	metaDBDir  = "meta"
	configFile = "config.json"
	indexFile  = "index.json"
	ignoreFile = ".ignore"
)

type Repository struct {
	root    string // worktree root
	metaDir string // root/.relic

	cfg    *config.Config
	logger *zap.Logger

	db       *badger.DB
	store    *content.Store
	log      *commit.Log
	branches *branch.Registry
	tree     *worktree.Worktree
}

// Init creates the repository layout at root. Re-running init on an
// existing repository is reported as AlreadyInitialized; the caller treats
// it as a no-op, not a failure.
func Init(root string) error {
	metaDir := filepath.Join(root, worktree.MetaDir)
	if _, err := os.Stat(metaDir); err == nil {
		return vcserr.AlreadyInitialized(root)
	}

	dirs := []string{
		metaDir,
		filepath.Join(metaDir, commitsDir),
		filepath.Join(metaDir, objectsDir),
		filepath.Join(metaDir, metaDBDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if err := config.Default().Save(filepath.Join(metaDir, configFile)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := index.Create(filepath.Join(metaDir, indexFile)); err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	if err := branch.NewRegistry(metaDir, nil).Init(DefaultBranch); err != nil {
		return fmt.Errorf("creating branch registry: %w", err)
	}

	return nil
}

// Open loads an existing repository at root.
func Open(root string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	metaDir := filepath.Join(absRoot, worktree.MetaDir)
	if _, err := os.Stat(metaDir); err != nil {
		if os.IsNotExist(err) {
			return nil, vcserr.NotInitialized(absRoot)
		}
		return nil, fmt.Errorf("checking repository: %w", err)
	}

	cfg, err := config.Load(filepath.Join(metaDir, configFile))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = config.Default() // older repositories have no config file
	}

	opts := badger.DefaultOptions(filepath.Join(metaDir, metaDBDir))
	opts.Logger = nil // badger's own logging is noise here

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening metadata database: %w", err)
	}

	store, err := content.NewStore(db, content.Options{
		Root:      filepath.Join(metaDir, objectsDir),
		CacheSize: cfg.Store.CacheSize,
		Compression: content.CompressionOptions{
			MinSize: cfg.Store.CompressionMin,
			Level:   cfg.Store.CompressionLevel,
		},
	}, logger.Named("content"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening content store: %w", err)
	}

	matcher, err := ignore.Load(filepath.Join(absRoot, ignoreFile))
	if err != nil {
		store.Close()
		db.Close()
		return nil, err
	}

	r := &Repository{
		root:     absRoot,
		metaDir:  metaDir,
		cfg:      cfg,
		logger:   logger,
		db:       db,
		store:    store,
		log:      commit.NewLog(filepath.Join(metaDir, commitsDir), logger.Named("commits")),
		branches: branch.NewRegistry(metaDir, logger.Named("branches")),
		tree:     worktree.New(absRoot, matcher, logger.Named("worktree")),
	}
	return r, nil
}

// FindRoot searches upward from startDir for a directory containing the
// repository metadata.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, worktree.MetaDir)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", vcserr.NotInitialized(startDir)
}

func (r *Repository) Root() string {
	return r.root
}

func (r *Repository) Config() *config.Config {
	return r.cfg
}

func (r *Repository) Close() error {
	r.store.Close()
	return r.db.Close()
}

// loadIndex reads the staging index from disk. The index is re-read per
// operation since the on-disk state is shared durable state.
func (r *Repository) loadIndex() (*index.Index, error) {
	ix, err := index.Load(filepath.Join(r.metaDir, indexFile))
	if err != nil {
		return nil, err
	}
	return ix, nil
}

func (r *Repository) appendIgnore(patterns []string) error {
	return ignore.Append(filepath.Join(r.root, ignoreFile), patterns)
}

func (r *Repository) reloadIgnore() error {
	matcher, err := ignore.Load(filepath.Join(r.root, ignoreFile))
	if err != nil {
		return err
	}
	r.tree = worktree.New(r.root, matcher, r.logger.Named("worktree"))
	return nil
}

// snapshotAt resolves a commit ID (possibly empty, meaning no commits yet)
// to its full tree snapshot.
func (r *Repository) snapshotAt(id commit.ID) (map[string]content.Ref, error) {
	if id == "" {
		return map[string]content.Ref{}, nil
	}
	c, err := r.log.Get(id)
	if err != nil {
		return nil, err
	}
	return c.Snapshot, nil
}

// resolveRef resolves a branch name or commit ID to a snapshot. Branch
// names take precedence; a branch with no commits resolves to the empty
// snapshot.
func (r *Repository) resolveRef(ref string) (map[string]content.Ref, error) {
	tip, err := r.branches.Tip(ref)
	if err == nil {
		return r.snapshotAt(tip)
	}
	if !vcserr.IsKind(err, vcserr.KindBranchNotFound) {
		return nil, err
	}

	c, err := r.log.Get(commit.ID(ref))
	if err != nil {
		return nil, err
	}
	return c.Snapshot, nil
}
