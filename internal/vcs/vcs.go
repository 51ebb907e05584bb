// Package vcs records build artifacts in the corpus git repository.
package vcs

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// ErrNoRepository indicates the corpus directory is not inside a git
// working tree.
var ErrNoRepository = errors.New("no git repository found")

// Request describes a commit to record after a build run. Add and Remove
// hold absolute paths; entries outside the repository are skipped with a
// warning rather than failing the commit.
type Request struct {
	Add     []string
	Remove  []string
	Message string
	Author  string
	Email   string
}

// Committer stages and commits files in the repository that contains dir.
type Committer struct {
	dir string
}

// NewCommitter returns a Committer rooted at dir. The enclosing repository
// is discovered on each Commit call, so the Committer stays valid across
// repository re-initialization.
func NewCommitter(dir string) *Committer {
	return &Committer{dir: dir}
}

// Commit stages the requested paths and records a commit. It returns the
// hash of the new commit, or the empty string when nothing was staged or
// the staged paths produced no tree change.
func (c *Committer) Commit(req Request) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(c.dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w: %s", ErrNoRepository, c.dir)
		}
		return "", fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}

	root := wt.Filesystem.Root()
	staged := 0
	for _, p := range req.Add {
		rel, ok := repoRel(root, p)
		if !ok {
			slog.Warn("skipping commit path outside repository", logfields.Path(p))
			continue
		}
		if _, err := wt.Add(rel); err != nil {
			return "", fmt.Errorf("stage %s: %w", rel, err)
		}
		staged++
	}
	for _, p := range req.Remove {
		rel, ok := repoRel(root, p)
		if !ok {
			slog.Warn("skipping commit path outside repository", logfields.Path(p))
			continue
		}
		if _, err := wt.Remove(rel); err != nil {
			// Typically an artifact that was never tracked.
			slog.Debug("could not stage removal", logfields.Path(rel), logfields.Error(err))
			continue
		}
		staged++
	}
	if staged == 0 {
		return "", nil
	}

	hash, err := wt.Commit(req.Message, &gogit.CommitOptions{
		Author: &object.Signature{Name: req.Author, Email: req.Email, When: time.Now()},
	})
	if err != nil {
		if errors.Is(err, gogit.ErrEmptyCommit) {
			return "", nil
		}
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

// repoRel converts an absolute path to a slash-separated path relative to
// the repository root, reporting false for paths outside the tree.
func repoRel(root, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
