package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"relic/internal/vcserr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const lockFile = "lock"

// lock takes scoped exclusive access to the repository's durable state for
// one multi-step mutation. It never waits: if another process holds the
// lock the operation fails fast with a Locked error. The returned release
// must run on every exit path.
func (r *Repository) lock() (release func(), err error) {
	path := filepath.Join(r.metaDir, lockFile)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, vcserr.Locked(path)
		}
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}

	token := uuid.New().String()
	fmt.Fprintf(f, "%s %d\n", token, os.Getpid())
	f.Close()

	r.logger.Debug("lock acquired", zap.String("token", token))

	return func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Error("releasing lock", zap.Error(err))
		}
	}, nil
}
