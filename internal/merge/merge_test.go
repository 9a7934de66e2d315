package merge

import (
	"testing"

	"relic/internal/content"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refOf(data string) content.Ref {
	return content.Hash([]byte(data))
}

func TestMergeDisjoint(t *testing.T) {
	source := map[string]content.Ref{
		"b.txt": refOf("beta"),
		"a.txt": refOf("alpha"),
	}
	target := map[string]content.Ref{
		"c.txt": refOf("gamma"),
	}

	result := Merge(source, target)
	assert.True(t, result.Complete())
	assert.Equal(t, []string{"a.txt", "b.txt"}, result.Added)
	assert.Empty(t, result.Conflicts)

	require.Len(t, result.Updated, 3)
	assert.Equal(t, refOf("alpha"), result.Updated["a.txt"])
	assert.Equal(t, refOf("gamma"), result.Updated["c.txt"])
}

func TestMergeIdenticalContent(t *testing.T) {
	shared := map[string]content.Ref{"a.txt": refOf("same")}

	result := Merge(shared, shared)
	assert.True(t, result.Complete())
	assert.Empty(t, result.Added)
	assert.Equal(t, shared, result.Updated)
}

func TestMergeConflict(t *testing.T) {
	source := map[string]content.Ref{
		"a.txt": refOf("source version"),
		"b.txt": refOf("only in source"),
	}
	target := map[string]content.Ref{
		"a.txt": refOf("target version"),
	}

	result := Merge(source, target)
	assert.False(t, result.Complete())
	assert.Equal(t, []string{"a.txt"}, result.Conflicts)

	// Target wins on the conflicted path; the rest still merges.
	assert.Equal(t, refOf("target version"), result.Updated["a.txt"])
	assert.Equal(t, []string{"b.txt"}, result.Added)
	assert.Equal(t, refOf("only in source"), result.Updated["b.txt"])
}

func TestMergeNeverRemovesTargetPaths(t *testing.T) {
	source := map[string]content.Ref{}
	target := map[string]content.Ref{
		"keep.txt": refOf("kept"),
	}

	result := Merge(source, target)
	assert.True(t, result.Complete())
	assert.Equal(t, refOf("kept"), result.Updated["keep.txt"])
}

func TestMergeInputsNotMutated(t *testing.T) {
	source := map[string]content.Ref{"new.txt": refOf("new")}
	target := map[string]content.Ref{"old.txt": refOf("old")}

	Merge(source, target)
	assert.Len(t, source, 1)
	assert.Len(t, target, 1)
	assert.NotContains(t, target, "new.txt")
}
