package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrMaxDraftsRange marks a retention bound below one, which would
// delete every artifact including the one just produced.
var ErrMaxDraftsRange = errors.New("max drafts must be at least 1")

// Policy describes the artifact store for one corpus: where artifacts
// live, their extension, and how many per root to retain.
type Policy struct {
	Dir       string
	Extension string
	MaxDrafts int
}

// Result reports one reconciliation pass.
type Result struct {
	Kept    []Artifact
	Evicted []Artifact
	Failed  []EvictionFailure
}

// EvictionFailure is a deletion that did not stick. The file remains on
// disk and keeps occupying a retention slot until it can be removed.
type EvictionFailure struct {
	Artifact Artifact
	Err      error
}

// List returns all artifacts for base, newest first. Name order breaks
// equal-stamp ties so repeated runs agree on the ranking. A missing
// output directory is simply an empty store.
func (p Policy) List(base string) ([]Artifact, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output directory: %w", err)
	}

	var out []Artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, ok := parseName(e.Name(), base, p.Extension)
		if !ok {
			continue
		}
		out = append(out, Artifact{
			Path:  filepath.Join(p.Dir, e.Name()),
			Name:  e.Name(),
			Base:  base,
			Stamp: ts,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Stamp.Equal(out[j].Stamp) {
			return out[i].Stamp.After(out[j].Stamp)
		}
		return out[i].Name > out[j].Name
	})
	return out, nil
}

// Reconcile deletes artifacts of base beyond MaxDrafts, newest kept.
// Deletion is best effort: failures are reported, never fatal.
func (p Policy) Reconcile(base string) (*Result, error) {
	if p.MaxDrafts < 1 {
		return nil, ErrMaxDraftsRange
	}
	arts, err := p.List(base)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i, a := range arts {
		if i < p.MaxDrafts {
			res.Kept = append(res.Kept, a)
			continue
		}
		if rmErr := os.Remove(a.Path); rmErr != nil {
			res.Failed = append(res.Failed, EvictionFailure{Artifact: a, Err: rmErr})
			continue
		}
		res.Evicted = append(res.Evicted, a)
	}
	return res, nil
}
