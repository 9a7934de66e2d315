package repo

import (
	"fmt"

	"relic/internal/vcserr"

	"go.uber.org/zap"
)

// Verify checks the referential integrity of the whole repository: every
// branch tip resolves to a commit, every commit's parent resolves, and
// every snapshot ref resolves to a stored blob whose bytes still hash to
// the ref. The first violation is returned as an integrity error.
func (r *Repository) Verify() error {
	infos, err := r.branches.List()
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.Tip == "" {
			continue
		}
		if _, err := r.log.Get(info.Tip); err != nil {
			return vcserr.Integrity(
				fmt.Sprintf("branch %s tip %s references a missing commit", info.Name, info.Tip.Short()), err)
		}
	}

	ids, err := r.log.IDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		c, err := r.log.Get(id)
		if err != nil {
			return vcserr.Integrity(fmt.Sprintf("commit %s is unreadable", id.Short()), err)
		}

		if c.Parent != "" {
			if _, err := r.log.Get(c.Parent); err != nil {
				return vcserr.Integrity(
					fmt.Sprintf("commit %s parent %s is missing", id.Short(), c.Parent.Short()), err)
			}
		}

		for path, ref := range c.Snapshot {
			if err := r.store.Verify(ref); err != nil {
				return vcserr.Integrity(
					fmt.Sprintf("commit %s: blob for %s is missing or corrupt", id.Short(), path), err)
			}
		}
	}

	r.logger.Info("verify passed",
		zap.Int("branches", len(infos)),
		zap.Int("commits", len(ids)))
	return nil
}
