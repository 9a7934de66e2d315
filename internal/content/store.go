// Package content implements the content-addressed blob store. Blobs are
// immutable files on disk keyed by their Ref; per-blob metadata lives in a
// badger database next to them.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var (
	ErrContentNotFound = errors.New("content not found")
	ErrInvalidRef      = errors.New("invalid content ref")
)

// Store provides deduplicated, write-once content storage.
type Store struct {
	root   string                  // root directory for blob files
	db     *badger.DB              // metadata database
	cache  *lru.Cache[Ref, []byte] // decoded content cache
	comp   *compressor
	logger *zap.Logger
}

// Options configures Store behavior.
type Options struct {
	Root        string // root directory path
	CacheSize   int    // number of blobs to cache
	Compression CompressionOptions
}

// NewStore creates a store rooted at opts.Root, using db for metadata.
func NewStore(db *badger.DB, opts Options, logger *zap.Logger) (*Store, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = 1000
	}

	if err := os.MkdirAll(opts.Root, 0755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}

	cache, err := lru.New[Ref, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	comp, err := newCompressor(opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("initializing compression: %w", err)
	}

	return &Store{
		root:   opts.Root,
		db:     db,
		cache:  cache,
		comp:   comp,
		logger: logger,
	}, nil
}

// Put stores content and returns its Ref. Re-inserting existing content is
// a no-op and returns the same Ref.
func (s *Store) Put(content []byte) (Ref, error) {
	if content == nil {
		content = []byte{} // empty files are valid
	}

	ref := Hash(content)

	exists, err := s.Exists(ref)
	if err != nil {
		return "", fmt.Errorf("checking existence: %w", err)
	}
	if exists {
		return ref, nil
	}

	payload, compressed := s.comp.compress(content)

	blobPath := s.blobPath(ref)
	if err := os.MkdirAll(filepath.Dir(blobPath), 0755); err != nil {
		return "", fmt.Errorf("creating blob directory: %w", err)
	}
	if err := os.WriteFile(blobPath, payload, 0644); err != nil {
		return "", fmt.Errorf("writing blob: %w", err)
	}

	meta := blobMeta{
		Ref:        ref,
		Size:       int64(len(content)),
		Compressed: compressed,
		CreatedAt:  time.Now(),
	}
	if err := s.putMeta(meta); err != nil {
		// Keep disk and metadata consistent on failure.
		os.Remove(blobPath)
		return "", fmt.Errorf("storing metadata: %w", err)
	}

	s.cache.Add(ref, content)

	s.logger.Debug("blob stored",
		zap.String("ref", ref.Short()),
		zap.Int64("size", meta.Size),
		zap.Bool("compressed", compressed))

	return ref, nil
}

// Get retrieves content by Ref. A missing metadata record or a blob removed
// from disk behind our back both surface as ErrContentNotFound.
func (s *Store) Get(ref Ref) ([]byte, error) {
	if !ValidRef(string(ref)) {
		return nil, ErrInvalidRef
	}

	if content, ok := s.cache.Get(ref); ok {
		return content, nil
	}

	meta, err := s.getMeta(ref)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(s.blobPath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("reading blob: %w", err)
	}

	if meta.Compressed {
		content, err = s.comp.decompress(content)
		if err != nil {
			return nil, err
		}
	}

	if Hash(content) != ref {
		return nil, fmt.Errorf("blob %s: content hash mismatch", ref.Short())
	}

	s.cache.Add(ref, content)
	return content, nil
}

// Exists checks whether a blob is stored.
func (s *Store) Exists(ref Ref) (bool, error) {
	if !ValidRef(string(ref)) {
		return false, ErrInvalidRef
	}

	if s.cache.Contains(ref) {
		return true, nil
	}

	_, err := s.getMeta(ref)
	if err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Verify re-reads a blob and checks its bytes against the Ref.
func (s *Store) Verify(ref Ref) error {
	// Bypass the cache: verification is about the on-disk state.
	s.cache.Remove(ref)
	content, err := s.Get(ref)
	if err != nil {
		return err
	}
	if Hash(content) != ref {
		return fmt.Errorf("blob %s: content hash mismatch", ref.Short())
	}
	return nil
}

// Close releases compression resources. The badger handle is owned by the
// caller and is not closed here.
func (s *Store) Close() {
	s.comp.close()
}

func (s *Store) blobPath(ref Ref) string {
	h := string(ref)
	return filepath.Join(s.root, h[:2], h[2:])
}

func (s *Store) putMeta(meta blobMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(fmt.Sprintf("blob:%s", meta.Ref))
		return txn.Set(key, data)
	})
}

func (s *Store) getMeta(ref Ref) (blobMeta, error) {
	var meta blobMeta

	err := s.db.View(func(txn *badger.Txn) error {
		key := []byte(fmt.Sprintf("blob:%s", ref))
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrContentNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})

	return meta, err
}
