package worktree

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"relic/internal/ignore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, events <-chan Event, want Event) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got, ok := <-events:
			require.True(t, ok, "watcher closed before event arrived")
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %+v", want)
		}
	}
}

func TestWatcherReportsChanges(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(New(root, nil, nil), nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("v1"), 0644))
	waitForEvent(t, w.Events(), Event{Kind: FileChanged, Path: "a.txt"})

	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))
	waitForEvent(t, w.Events(), Event{Kind: FileRemoved, Path: "a.txt"})
}

func TestWatcherSkipsIgnored(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(New(root, ignore.New([]string{"*.log"}), nil), nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.log"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0644))

	// The ignored write never surfaces; the tracked one does.
	waitForEvent(t, w.Events(), Event{Kind: FileChanged, Path: "keep.txt"})
	select {
	case got := <-w.Events():
		assert.NotEqual(t, "skip.log", got.Path)
	default:
	}
}
