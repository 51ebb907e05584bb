package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// startWatcher runs w until the test ends and waits for the initial
// directory walk so writes made by the test are observed.
func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Log("watcher did not stop in time")
		}
		_ = w.Close()
	})
	time.Sleep(200 * time.Millisecond)
}

func receiveBatch(t *testing.T, w *Watcher) []string {
	t.Helper()
	select {
	case batch := <-w.Batches():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a change batch")
		return nil
	}
}

func TestWatcherBatchesChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chapters"), 0o755))

	w, err := NewWatcher(dir)
	require.NoError(t, err)
	w.WithDebounce(200 * time.Millisecond)
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "main.tex"), "\\documentclass{article}")
	writeFile(t, filepath.Join(dir, "chapters", "intro.tex"), "Intro")

	batch := receiveBatch(t, w)
	require.Equal(t, []string{"chapters/intro.tex", "main.tex"}, batch)
}

func TestWatcherFiltersNoise(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "drafts"), 0o755))

	w, err := NewWatcher(dir)
	require.NoError(t, err)
	w.WithDebounce(150 * time.Millisecond).WithIgnoreDirs("drafts")
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "drafts", "stale.tex"), "x")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	writeFile(t, filepath.Join(dir, ".hidden.tex"), "x")
	writeFile(t, filepath.Join(dir, "main.tex~"), "x")
	writeFile(t, filepath.Join(dir, "main.tex"), "\\documentclass{book}")

	batch := receiveBatch(t, w)
	require.Equal(t, []string{"main.tex"}, batch)
}

func TestWatcherAddsNewDirectories(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(dir)
	require.NoError(t, err)
	w.WithDebounce(50 * time.Millisecond)
	startWatcher(t, w)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "appendix"), 0o755))
	time.Sleep(300 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "appendix", "tables.tex"), "tables")

	batch := receiveBatch(t, w)
	require.Equal(t, []string{"appendix/tables.tex"}, batch)
}

func TestWatcherReportsRemovals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scratch.tex")
	writeFile(t, path, "scratch")

	w, err := NewWatcher(dir)
	require.NoError(t, err)
	w.WithDebounce(50 * time.Millisecond)
	startWatcher(t, w)

	require.NoError(t, os.Remove(path))

	batch := receiveBatch(t, w)
	require.Equal(t, []string{"scratch.tex"}, batch)
}

func TestWatcherKeepsPendingWhileConsumerBusy(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(dir)
	require.NoError(t, err)
	w.WithDebounce(50 * time.Millisecond)
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "first.tex"), "a")
	time.Sleep(150 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "second.tex"), "b")
	time.Sleep(150 * time.Millisecond)

	require.Equal(t, []string{"first.tex"}, receiveBatch(t, w))
	require.Equal(t, []string{"second.tex"}, receiveBatch(t, w))
}

func TestShouldIgnoreEvent(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"chapters/intro.tex", false},
		{"/abs/main.tex", false},
		{".hidden.tex", true},
		{"a/.b.tex", true},
		{"main.tex~", true},
		{"x/.#main.tex", true},
		{"#main.tex#", true},
		{"b/main.swp", true},
		{"c/main.swx", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, shouldIgnoreEvent(tc.path), tc.path)
	}
}
