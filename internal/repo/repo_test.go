package repo

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"relic/internal/vcserr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func initRepo(t *testing.T) *Repository {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, Init(dir))

	r, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func writeWorktreeFile(t *testing.T, r *Repository, rel, content string) {
	t.Helper()
	abs := filepath.Join(r.Root(), filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
}

func readWorktreeFile(t *testing.T, r *Repository, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(r.Root(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestInitLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))

	for _, rel := range []string{
		".relic/HEAD",
		".relic/branches.json",
		".relic/index.json",
		".relic/config.json",
	} {
		_, err := os.Stat(filepath.Join(dir, rel))
		assert.NoError(t, err, rel)
	}
	for _, rel := range []string{".relic/commits", ".relic/objects", ".relic/meta"} {
		info, err := os.Stat(filepath.Join(dir, rel))
		require.NoError(t, err, rel)
		assert.True(t, info.IsDir())
	}

	err := Init(dir)
	assert.True(t, vcserr.IsKind(err, vcserr.KindAlreadyInitialized))
}

func TestOpenUninitialized(t *testing.T) {
	_, err := Open(t.TempDir(), nil)
	assert.True(t, vcserr.IsKind(err, vcserr.KindNotInitialized))
}

func TestFindRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	root, err := FindRoot(nested)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	expected, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, expected, resolved)

	_, err = FindRoot(t.TempDir())
	assert.True(t, vcserr.IsKind(err, vcserr.KindNotInitialized))
}

func TestStageCommitHistory(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "a.txt", "hello\n")
	require.NoError(t, r.Stage("a.txt"))

	ix, err := r.loadIndex()
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())

	first, err := r.Commit("first")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Empty(t, first.Parent)
	assert.Contains(t, first.Snapshot, "a.txt")

	// The branch tip advanced and the index cleared.
	tip, err := r.branches.Tip(DefaultBranch)
	require.NoError(t, err)
	assert.Equal(t, first.ID, tip)

	ix, err = r.loadIndex()
	require.NoError(t, err)
	assert.Zero(t, ix.Len())

	commits, err := r.History("")
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, first.ID, commits[0].ID)
}

func TestCommitEmptyIndex(t *testing.T) {
	r := initRepo(t)

	_, err := r.Commit("nothing staged")
	assert.True(t, vcserr.IsKind(err, vcserr.KindEmptySnapshot))
}

func TestCommitSnapshotOverlaysParent(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "a.txt", "v1\n")
	writeWorktreeFile(t, r, "b.txt", "beta\n")
	require.NoError(t, r.Stage("a.txt"))
	require.NoError(t, r.Stage("b.txt"))
	first, err := r.Commit("first")
	require.NoError(t, err)

	// Only a.txt is restaged; the child snapshot must still carry b.txt.
	writeWorktreeFile(t, r, "a.txt", "v2\n")
	require.NoError(t, r.Stage("a.txt"))
	second, err := r.Commit("second")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.Parent)
	assert.Contains(t, second.Snapshot, "a.txt")
	assert.Contains(t, second.Snapshot, "b.txt")
	assert.Equal(t, first.Snapshot["b.txt"], second.Snapshot["b.txt"])
	assert.NotEqual(t, first.Snapshot["a.txt"], second.Snapshot["a.txt"])

	commits, err := r.History("")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, second.ID, commits[0].ID)
	assert.Equal(t, first.ID, commits[1].ID)
}

func TestStageMissingFile(t *testing.T) {
	r := initRepo(t)

	err := r.Stage("ghost.txt")
	assert.True(t, vcserr.IsKind(err, vcserr.KindFileNotFound))
}

func TestBranchLifecycle(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "a.txt", "base\n")
	require.NoError(t, r.Stage("a.txt"))
	base, err := r.Commit("base")
	require.NoError(t, err)

	require.NoError(t, r.CreateBranch("dev"))
	err = r.CreateBranch("dev")
	assert.True(t, vcserr.IsKind(err, vcserr.KindBranchExists))

	infos, err := r.ListBranches()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "dev", infos[0].Name)
	assert.Equal(t, base.ID, infos[0].Tip)
	assert.False(t, infos[0].Active)
	assert.Equal(t, DefaultBranch, infos[1].Name)
	assert.True(t, infos[1].Active)

	err = r.SwitchBranch("ghost")
	assert.True(t, vcserr.IsKind(err, vcserr.KindBranchNotFound))
}

func TestSwitchBranchClearsIndex(t *testing.T) {
	r := initRepo(t)

	require.NoError(t, r.CreateBranch("dev"))

	writeWorktreeFile(t, r, "pending.txt", "staged but not committed\n")
	require.NoError(t, r.Stage("pending.txt"))

	require.NoError(t, r.SwitchBranch("dev"))

	head, err := r.branches.Head()
	require.NoError(t, err)
	assert.Equal(t, "dev", head)

	ix, err := r.loadIndex()
	require.NoError(t, err)
	assert.Zero(t, ix.Len())
}

func TestDiffBranchesAndCommits(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "a.txt", "line one\nline two\n")
	require.NoError(t, r.Stage("a.txt"))
	base, err := r.Commit("base")
	require.NoError(t, err)

	require.NoError(t, r.CreateBranch("dev"))
	require.NoError(t, r.SwitchBranch("dev"))

	writeWorktreeFile(t, r, "a.txt", "line one\nline changed\n")
	writeWorktreeFile(t, r, "b.txt", "new file\n")
	require.NoError(t, r.Stage("a.txt"))
	require.NoError(t, r.Stage("b.txt"))
	devTip, err := r.Commit("dev work")
	require.NoError(t, err)

	result, err := r.Diff(DefaultBranch, "dev")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, result.Added)
	assert.Empty(t, result.Removed)
	require.Len(t, result.Modified, 1)

	mod := result.Modified[0]
	assert.Equal(t, "a.txt", mod.Path)
	assert.False(t, mod.Binary)
	require.NotNil(t, mod.Diff)
	assert.Equal(t, 1, mod.Diff.Stats.Additions)
	assert.Equal(t, 1, mod.Diff.Stats.Deletions)

	// Commit IDs resolve the same way branch names do.
	byID, err := r.Diff(string(base.ID), string(devTip.ID))
	require.NoError(t, err)
	assert.Equal(t, result.Added, byID.Added)
	require.Len(t, byID.Modified, 1)
	assert.Equal(t, "a.txt", byID.Modified[0].Path)

	same, err := r.Diff("dev", "dev")
	require.NoError(t, err)
	assert.True(t, same.Empty())

	_, err = r.Diff("no-such-ref", "dev")
	assert.True(t, vcserr.IsKind(err, vcserr.KindCommitNotFound))
}

func TestDiffBinaryContent(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "blob.bin", "text\n")
	require.NoError(t, r.Stage("blob.bin"))
	_, err := r.Commit("text version")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(
		filepath.Join(r.Root(), "blob.bin"), []byte{'a', 0, 'b'}, 0644))
	require.NoError(t, r.Stage("blob.bin"))
	_, err = r.Commit("binary version")
	require.NoError(t, err)

	commits, err := r.History("")
	require.NoError(t, err)
	require.Len(t, commits, 2)

	result, err := r.Diff(string(commits[1].ID), string(commits[0].ID))
	require.NoError(t, err)
	require.Len(t, result.Modified, 1)
	assert.True(t, result.Modified[0].Binary)
	assert.Nil(t, result.Modified[0].Diff)
}

func TestMergeCleanMaterializesAdditions(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "base.txt", "base\n")
	require.NoError(t, r.Stage("base.txt"))
	_, err := r.Commit("base")
	require.NoError(t, err)

	require.NoError(t, r.CreateBranch("feature"))
	require.NoError(t, r.SwitchBranch("feature"))
	writeWorktreeFile(t, r, "feature.txt", "feature work\n")
	require.NoError(t, r.Stage("feature.txt"))
	_, err = r.Commit("feature work")
	require.NoError(t, err)

	require.NoError(t, r.SwitchBranch(DefaultBranch))

	result, err := r.Merge("feature", DefaultBranch)
	require.NoError(t, err)
	assert.True(t, result.Complete())
	assert.Equal(t, []string{"feature.txt"}, result.Added)

	// The addition landed in the working tree and the staging index.
	assert.Equal(t, "feature work\n", readWorktreeFile(t, r, "feature.txt"))
	ix, err := r.loadIndex()
	require.NoError(t, err)
	assert.Contains(t, ix.Snapshot(), "feature.txt")

	merged, err := r.Commit("merge feature")
	require.NoError(t, err)
	assert.Contains(t, merged.Snapshot, "base.txt")
	assert.Contains(t, merged.Snapshot, "feature.txt")
}

func TestMergeConflictLeavesTargetIntact(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "shared.txt", "original\n")
	require.NoError(t, r.Stage("shared.txt"))
	_, err := r.Commit("base")
	require.NoError(t, err)

	require.NoError(t, r.CreateBranch("dev"))
	require.NoError(t, r.SwitchBranch("dev"))
	writeWorktreeFile(t, r, "shared.txt", "dev version\n")
	require.NoError(t, r.Stage("shared.txt"))
	_, err = r.Commit("dev change")
	require.NoError(t, err)

	require.NoError(t, r.SwitchBranch(DefaultBranch))
	writeWorktreeFile(t, r, "shared.txt", "main version\n")
	require.NoError(t, r.Stage("shared.txt"))
	mainTip, err := r.Commit("main change")
	require.NoError(t, err)

	result, err := r.Merge("dev", DefaultBranch)
	require.NoError(t, err)
	assert.False(t, result.Complete())
	assert.Equal(t, []string{"shared.txt"}, result.Conflicts)

	// Target wins: the snapshot and worktree keep the main-side content.
	assert.Equal(t, mainTip.Snapshot["shared.txt"], result.Updated["shared.txt"])
	assert.Equal(t, "main version\n", readWorktreeFile(t, r, "shared.txt"))

	// No conflicted merge ever stages anything.
	ix, err := r.loadIndex()
	require.NoError(t, err)
	assert.Zero(t, ix.Len())
}

func TestMergeUnknownBranch(t *testing.T) {
	r := initRepo(t)

	_, err := r.Merge("ghost", DefaultBranch)
	assert.True(t, vcserr.IsKind(err, vcserr.KindBranchNotFound))
}

func TestLockedRepository(t *testing.T) {
	r := initRepo(t)
	writeWorktreeFile(t, r, "a.txt", "x\n")

	// Simulate another process holding the lock.
	lockPath := filepath.Join(r.metaDir, lockFile)
	require.NoError(t, os.WriteFile(lockPath, []byte("other-token 1234\n"), 0644))

	err := r.Stage("a.txt")
	assert.True(t, vcserr.IsKind(err, vcserr.KindLocked))

	_, err = r.Commit("blocked")
	assert.True(t, vcserr.IsKind(err, vcserr.KindLocked))

	// Releasing the lock unblocks mutations.
	require.NoError(t, os.Remove(lockPath))
	assert.NoError(t, r.Stage("a.txt"))
}

func TestStatus(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "a.txt", "v1\n")
	status, err := r.Status()
	require.NoError(t, err)
	assert.Equal(t, DefaultBranch, status.Branch)
	assert.Equal(t, []string{"a.txt"}, status.Untracked)
	assert.False(t, status.Clean())

	require.NoError(t, r.Stage("a.txt"))
	status, err = r.Status()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, status.Staged)
	assert.Empty(t, status.Untracked)

	// Edit after staging: both staged and modified.
	writeWorktreeFile(t, r, "a.txt", "v2\n")
	status, err = r.Status()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, status.Staged)
	assert.Equal(t, []string{"a.txt"}, status.Modified)

	require.NoError(t, r.Stage("a.txt"))
	_, err = r.Commit("first")
	require.NoError(t, err)

	status, err = r.Status()
	require.NoError(t, err)
	assert.True(t, status.Clean())

	writeWorktreeFile(t, r, "a.txt", "v3\n")
	status, err = r.Status()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, status.Modified)

	require.NoError(t, os.Remove(filepath.Join(r.Root(), "a.txt")))
	status, err = r.Status()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, status.Deleted)
}

func TestIgnoreIntegration(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "keep.txt", "kept\n")
	writeWorktreeFile(t, r, "skip.log", "skipped\n")

	require.NoError(t, r.AddIgnore([]string{"*.log"}))

	paths, err := r.ListFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, paths)

	status, err := r.Status()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, status.Untracked)
}

func TestClone(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "a.txt", "content\n")
	require.NoError(t, r.Stage("a.txt"))
	first, err := r.Commit("first")
	require.NoError(t, err)
	require.NoError(t, r.AddIgnore([]string{"*.log"}))

	target := filepath.Join(t.TempDir(), "clone")
	require.NoError(t, r.Clone(target))

	err = r.Clone(target)
	assert.True(t, vcserr.IsKind(err, vcserr.KindTargetExists))

	cloned, err := Open(target, zap.NewNop())
	require.NoError(t, err)
	defer cloned.Close()

	commits, err := cloned.History("")
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, first.ID, commits[0].ID)

	// Blob content survives the metadata backup/restore.
	data, err := cloned.store.Get(first.Snapshot["a.txt"])
	require.NoError(t, err)
	assert.Equal(t, "content\n", string(data))

	assert.Equal(t, "content\n", readWorktreeFile(t, cloned, "a.txt"))
	assert.Equal(t, "*.log\n", readWorktreeFile(t, cloned, ".ignore"))
}

func TestVerify(t *testing.T) {
	r := initRepo(t)

	writeWorktreeFile(t, r, "a.txt", "content\n")
	require.NoError(t, r.Stage("a.txt"))
	_, err := r.Commit("first")
	require.NoError(t, err)

	require.NoError(t, r.Verify())

	// Remove a blob file out from under the store.
	var blob string
	err = filepath.WalkDir(filepath.Join(r.metaDir, objectsDir),
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				blob = path
			}
			return nil
		})
	require.NoError(t, err)
	require.NotEmpty(t, blob)
	require.NoError(t, os.Remove(blob))

	err = r.Verify()
	assert.True(t, vcserr.IsKind(err, vcserr.KindIntegrity))
}

func TestHistoryUnknownBranch(t *testing.T) {
	r := initRepo(t)

	_, err := r.History("ghost")
	assert.True(t, vcserr.IsKind(err, vcserr.KindBranchNotFound))
}
