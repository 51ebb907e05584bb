package changes

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/texbuilder/internal/resolve"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
	"git.home.luguber.info/inful/texbuilder/internal/util/sets"
)

// ErrNoRepository marks a corpus that is not inside a git checkout, in
// which case there is no default change set to derive.
var ErrNoRepository = errors.New("corpus is not inside a git repository")

// Detector derives the default change set from the version-control state
// of the corpus checkout: any staged, unstaged or untracked document
// source under the corpus root counts as changed.
type Detector struct {
	corpusRoot string
}

// NewDetector creates a detector for the corpus rooted at corpusRoot.
// The git directory may live in a parent directory; the corpus is often
// a subtree of a larger repository.
func NewDetector(corpusRoot string) *Detector {
	return &Detector{corpusRoot: corpusRoot}
}

// Detect returns the canonical identities of changed document sources,
// sorted and deduplicated. Paths outside the corpus root and non-source
// files are ignored.
func (d *Detector) Detect() ([]texpath.Canon, error) {
	repo, err := git.PlainOpenWithOptions(d.corpusRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRepository, d.corpusRoot)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}

	rootAbs, err := filepath.Abs(d.corpusRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus root: %w", err)
	}
	wtRoot := wt.Filesystem.Root()

	changed := sets.New[texpath.Canon]()
	for p, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		abs := filepath.Join(wtRoot, filepath.FromSlash(p))
		rel, relErr := filepath.Rel(rootAbs, abs)
		if relErr != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rel = filepath.ToSlash(rel)
		if !strings.EqualFold(path.Ext(rel), ".tex") {
			continue
		}
		if c := texpath.Normalize(rel); !c.IsZero() {
			changed.Add(c)
		}
	}
	return resolve.Sorted(changed), nil
}
