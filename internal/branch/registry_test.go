package branch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"relic/internal/commit"
	"relic/internal/vcserr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(t.TempDir(), nil)
	require.NoError(t, r.Init("main"))
	return r
}

func TestRegistryInit(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir, nil)
	require.NoError(t, r.Init("main"))

	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, "main", head)

	tip, err := r.Tip("main")
	require.NoError(t, err)
	assert.Empty(t, tip)

	// The registry file records the empty tip as an explicit null.
	data, err := os.ReadFile(filepath.Join(dir, "branches.json"))
	require.NoError(t, err)
	var raw map[string]*string
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "main")
	assert.Nil(t, raw["main"])
}

func TestRegistryTipUnknownBranch(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Tip("ghost")
	assert.True(t, vcserr.IsKind(err, vcserr.KindBranchNotFound))
}

func TestRegistryCreate(t *testing.T) {
	r := newTestRegistry(t)

	id := commit.ID("aaaa000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, r.AdvanceTip("main", id))

	require.NoError(t, r.Create("dev"))

	// The new branch starts at the creating branch's tip.
	tip, err := r.Tip("dev")
	require.NoError(t, err)
	assert.Equal(t, id, tip)
}

func TestRegistryCreateDuplicate(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Create("dev"))
	err := r.Create("dev")
	assert.True(t, vcserr.IsKind(err, vcserr.KindBranchExists))
}

func TestRegistryCreateFromEmptyTip(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Create("dev"))
	tip, err := r.Tip("dev")
	require.NoError(t, err)
	assert.Empty(t, tip)
}

func TestRegistryList(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Create("zeta"))
	require.NoError(t, r.Create("alpha"))

	infos, err := r.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)

	// Sorted by name, active flag on HEAD.
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, "main", infos[1].Name)
	assert.Equal(t, "zeta", infos[2].Name)
	assert.False(t, infos[0].Active)
	assert.True(t, infos[1].Active)
	assert.False(t, infos[2].Active)
}

func TestRegistrySwitchTo(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Create("dev"))
	require.NoError(t, r.SwitchTo("dev"))

	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, "dev", head)

	err = r.SwitchTo("ghost")
	assert.True(t, vcserr.IsKind(err, vcserr.KindBranchNotFound))

	// A failed switch leaves HEAD untouched.
	head, err = r.Head()
	require.NoError(t, err)
	assert.Equal(t, "dev", head)
}

func TestRegistryAdvanceTip(t *testing.T) {
	r := newTestRegistry(t)

	id := commit.ID("bbbb000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, r.AdvanceTip("main", id))

	tip, err := r.Tip("main")
	require.NoError(t, err)
	assert.Equal(t, id, tip)

	err = r.AdvanceTip("ghost", id)
	assert.True(t, vcserr.IsKind(err, vcserr.KindBranchNotFound))
}
