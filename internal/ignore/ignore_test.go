package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchBasename(t *testing.T) {
	m := New([]string{"*.log", "secret.txt"})

	assert.True(t, m.Match("app.log"))
	assert.True(t, m.Match("nested/dir/app.log"))
	assert.True(t, m.Match("secret.txt"))
	assert.False(t, m.Match("app.txt"))
	assert.False(t, m.Match("log"))
}

func TestMatchPathPatterns(t *testing.T) {
	m := New([]string{"build/**", "docs/*.md"})

	assert.True(t, m.Match("build/out.bin"))
	assert.True(t, m.Match("build/deep/nested/out.bin"))
	assert.True(t, m.Match("docs/readme.md"))
	assert.False(t, m.Match("docs/deep/readme.md"))
	assert.False(t, m.Match("src/build.go"))
}

func TestMatchDoubleStarMiddle(t *testing.T) {
	m := New([]string{"vendor/**/testdata"})

	assert.True(t, m.Match("vendor/a/b/testdata"))
	assert.True(t, m.Match("vendor/testdata"))
	assert.False(t, m.Match("vendor/a/b/other"))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ignore")
	require.NoError(t, os.WriteFile(path, []byte("# comment\n\n*.tmp\nbuild/**\n"), 0644))

	m, err := Load(path)
	require.NoError(t, err)

	assert.True(t, m.Match("x.tmp"))
	assert.True(t, m.Match("build/a"))
	assert.False(t, m.Match("# comment"))
	assert.False(t, m.Match("x.go"))
}

func TestLoadMissingFile(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.False(t, m.Match("anything"))
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ignore")

	require.NoError(t, Append(path, []string{"*.log"}))
	require.NoError(t, Append(path, []string{"tmp/**"}))

	m, err := Load(path)
	require.NoError(t, err)
	assert.True(t, m.Match("a.log"))
	assert.True(t, m.Match("tmp/x"))
}
