package diff

import (
	"testing"

	"relic/internal/content"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refOf(data string) content.Ref {
	return content.Hash([]byte(data))
}

func TestCompareIdentical(t *testing.T) {
	snap := map[string]content.Ref{
		"a.txt": refOf("alpha"),
		"b.txt": refOf("beta"),
	}

	result := Compare(snap, snap)
	assert.True(t, result.Empty())
}

func TestCompareSetAlgebra(t *testing.T) {
	a := map[string]content.Ref{
		"common.txt":   refOf("same"),
		"changed.txt":  refOf("before"),
		"removed.txt":  refOf("gone"),
		"removed2.txt": refOf("also gone"),
	}
	b := map[string]content.Ref{
		"common.txt":  refOf("same"),
		"changed.txt": refOf("after"),
		"added.txt":   refOf("new"),
	}

	result := Compare(a, b)
	assert.False(t, result.Empty())
	assert.Equal(t, []string{"added.txt"}, result.Added)
	assert.Equal(t, []string{"removed.txt", "removed2.txt"}, result.Removed)

	require.Len(t, result.Modified, 1)
	mod := result.Modified[0]
	assert.Equal(t, "changed.txt", mod.Path)
	assert.Equal(t, refOf("before"), mod.OldRef)
	assert.Equal(t, refOf("after"), mod.NewRef)
	assert.Nil(t, mod.Diff)
}

func TestCompareEmptySides(t *testing.T) {
	snap := map[string]content.Ref{"a.txt": refOf("alpha")}

	result := Compare(map[string]content.Ref{}, snap)
	assert.Equal(t, []string{"a.txt"}, result.Added)
	assert.Empty(t, result.Removed)

	result = Compare(snap, map[string]content.Ref{})
	assert.Equal(t, []string{"a.txt"}, result.Removed)
	assert.Empty(t, result.Added)
}

func TestCompareSortedOutput(t *testing.T) {
	a := map[string]content.Ref{}
	b := map[string]content.Ref{
		"z.txt": refOf("z"),
		"a.txt": refOf("a"),
		"m.txt": refOf("m"),
	}

	result := Compare(a, b)
	assert.Equal(t, []string{"a.txt", "m.txt", "z.txt"}, result.Added)
}
