package integration

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/config"
)

// stubToolchain stands in for the LaTeX binaries so the whole pipeline
// can run in environments without a TeX installation.
type stubToolchain struct{}

func (stubToolchain) Compile(_ context.Context, job compile.Job) error {
	return os.WriteFile(job.OutputFile(), []byte("%PDF-1.5 "+job.Root.String()+"\n"), 0o644)
}

func (stubToolchain) Bibliography(context.Context, compile.Job) error { return nil }

// writeCorpus materializes files (corpus-relative path -> contents) under dir.
func writeCorpus(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// initRepo turns dir into a git repository with everything committed.
func initRepo(t *testing.T, dir string) *gogit.Repository {
	t.Helper()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	commitAll(t, repo, "initial corpus")
	return repo
}

func commitAll(t *testing.T, repo *gogit.Repository, message string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	_, err = wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

// headTreeNames returns the set of file paths in the HEAD commit tree.
func headTreeNames(t *testing.T, repo *gogit.Repository) map[string]bool {
	t.Helper()
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)

	names := make(map[string]bool)
	require.NoError(t, tree.Files().ForEach(func(f *object.File) error {
		names[f.Name] = true
		return nil
	}))
	return names
}

func headMessage(t *testing.T, repo *gogit.Repository) string {
	t.Helper()
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	return commit.Message
}

// draftsFor lists the published artifacts of one root, oldest first.
func draftsFor(t *testing.T, draftDir, base string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(draftDir, base+"_*.pdf"))
	require.NoError(t, err)
	sort.Strings(matches)
	return matches
}

func newConfig(t *testing.T, corpusDir string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Corpus.Root = corpusDir
	cfg.Corpus.Biber = false
	cfg.Build.WorkDir = t.TempDir()
	return cfg
}
