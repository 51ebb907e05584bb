package resolve

import (
	"fmt"

	"git.home.luguber.info/inful/texbuilder/internal/texpath"
	"git.home.luguber.info/inful/texbuilder/internal/util/sets"
)

// ExclusionSet is the canonicalized never-build list. It filters final
// target selections only; an excluded document still routes reachability
// to the documents that include it.
type ExclusionSet struct {
	members sets.Set[texpath.Canon]
}

// NewExclusionSet canonicalizes the configured entries. Entries with no
// canonical form are configuration errors.
func NewExclusionSet(entries []string) (*ExclusionSet, error) {
	members := sets.New[texpath.Canon]()
	for _, e := range entries {
		c, err := texpath.NormalizeWithError(e)
		if err != nil {
			return nil, fmt.Errorf("exclusion entry %q: %w", e, err)
		}
		members.Add(c)
	}
	return &ExclusionSet{members: members}, nil
}

// Contains reports whether id is excluded. A nil set excludes nothing.
func (e *ExclusionSet) Contains(id texpath.Canon) bool {
	return e != nil && e.members.Has(id)
}

// Len returns the number of excluded identities.
func (e *ExclusionSet) Len() int {
	if e == nil {
		return 0
	}
	return e.members.Len()
}

// Filter splits ids into the sorted build candidates and the sorted
// members removed by exclusion.
func (e *ExclusionSet) Filter(ids sets.Set[texpath.Canon]) (kept, removed []texpath.Canon) {
	for _, id := range Sorted(ids) {
		if e.Contains(id) {
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	return kept, removed
}

// FilterSlice filters an ordered list (word-count targets) preserving
// input order.
func (e *ExclusionSet) FilterSlice(ids []texpath.Canon) (kept, removed []texpath.Canon) {
	for _, id := range ids {
		if e.Contains(id) {
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	return kept, removed
}
