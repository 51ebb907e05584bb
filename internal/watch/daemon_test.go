package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/history"
)

type stubToolchain struct{}

func (stubToolchain) Compile(_ context.Context, job compile.Job) error {
	return os.WriteFile(job.OutputFile(), []byte("%PDF-1.5 stub\n"), 0o644)
}

func (stubToolchain) Bibliography(context.Context, compile.Job) error { return nil }

func testDaemonConfig(t *testing.T, corpusDir string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Corpus.Root = corpusDir
	cfg.Corpus.Biber = false
	cfg.Build.WorkDir = t.TempDir()
	cfg.Watch.Debounce = "50ms"
	return cfg
}

func startDaemon(t *testing.T, d *Daemon) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	return cancel, done
}

func stopDaemon(t *testing.T, cancel context.CancelFunc, done chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not shut down")
	}
}

func draftCount(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	return len(entries)
}

func TestDaemonBuildsOnStartupAndChange(t *testing.T) {
	corpus := t.TempDir()
	writeFile(t, filepath.Join(corpus, "main.tex"),
		"\\documentclass{article}\n\\begin{document}\nOne\n\\end{document}\n")

	d, err := New(testDaemonConfig(t, corpus))
	require.NoError(t, err)
	d.WithToolchain(stubToolchain{})

	cancel, done := startDaemon(t, d)
	defer stopDaemon(t, cancel, done)

	drafts := filepath.Join(corpus, "drafts")
	require.Eventually(t, func() bool { return draftCount(drafts) >= 1 },
		5*time.Second, 50*time.Millisecond, "startup build should publish a draft")

	// Give the watcher walk time to finish before the edit.
	time.Sleep(500 * time.Millisecond)
	before := draftCount(drafts)
	writeFile(t, filepath.Join(corpus, "main.tex"),
		"\\documentclass{article}\n\\begin{document}\nTwo\n\\end{document}\n")

	require.Eventually(t, func() bool { return draftCount(drafts) > before },
		10*time.Second, 100*time.Millisecond, "source edit should trigger a rebuild")
}

func TestDaemonScheduledRebuild(t *testing.T) {
	corpus := t.TempDir()
	writeFile(t, filepath.Join(corpus, "main.tex"),
		"\\documentclass{article}\n\\begin{document}\nSame\n\\end{document}\n")

	cfg := testDaemonConfig(t, corpus)
	cfg.Watch.Schedule = "300ms"

	d, err := New(cfg)
	require.NoError(t, err)
	d.WithToolchain(stubToolchain{})

	cancel, done := startDaemon(t, d)
	defer stopDaemon(t, cancel, done)

	drafts := filepath.Join(corpus, "drafts")
	require.Eventually(t, func() bool { return draftCount(drafts) >= 2 },
		10*time.Second, 100*time.Millisecond, "schedule should publish beyond the startup draft")
}

func TestDaemonRecordsHistory(t *testing.T) {
	corpus := t.TempDir()
	writeFile(t, filepath.Join(corpus, "main.tex"),
		"\\documentclass{article}\n\\begin{document}\nHistory\n\\end{document}\n")

	cfg := testDaemonConfig(t, corpus)
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	d, err := New(cfg)
	require.NoError(t, err)
	d.WithToolchain(stubToolchain{})

	cancel, done := startDaemon(t, d)
	drafts := filepath.Join(corpus, "drafts")
	require.Eventually(t, func() bool { return draftCount(drafts) >= 1 },
		5*time.Second, 50*time.Millisecond)
	stopDaemon(t, cancel, done)

	store, err := history.Open(cfg.History.Path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, runs)
	require.Equal(t, "startup", runs[len(runs)-1].Reason)
}

func TestNewDaemonWiresEndpoints(t *testing.T) {
	corpus := t.TempDir()
	cfg := testDaemonConfig(t, corpus)
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.Watch.MetricsAddr = "127.0.0.1:0"

	d, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, d.store)
	require.NotNil(t, d.metrics)

	d.close()
	require.Nil(t, d.store)
}

func TestNewDaemonUnreachableEventsServer(t *testing.T) {
	corpus := t.TempDir()
	cfg := testDaemonConfig(t, corpus)
	cfg.Watch.NATSURL = "nats://127.0.0.1:1"

	_, err := New(cfg)
	require.Error(t, err)
}

func TestWorkBase(t *testing.T) {
	cfg := config.Default()
	cfg.Build.WorkDir = filepath.Join(string(filepath.Separator), "var", "cache", "texbuilder")
	require.Equal(t, cfg.Build.WorkDir, workBase(cfg))

	cfg.Build.WorkDir = ""
	require.NotEmpty(t, workBase(cfg))
}
