package resolve

import (
	"sort"

	"git.home.luguber.info/inful/texbuilder/internal/graph"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
	"git.home.luguber.info/inful/texbuilder/internal/util/sets"
)

// Affected computes the set of top-level documents whose compiled output
// may be stale given the changed documents, by walking incoming-reference
// edges transitively. A changed root affects itself. Shared visited state
// makes repeated membership free, so arbitrary reference cycles
// terminate. Changed identities absent from the graph carry no edges;
// they are returned separately so callers can log them.
func Affected(g *graph.Graph, changed []texpath.Canon) (sets.Set[texpath.Canon], []texpath.Canon) {
	affected := sets.New[texpath.Canon]()
	visited := sets.New[texpath.Canon]()
	var unknown []texpath.Canon
	var queue []texpath.Canon

	for _, id := range changed {
		if id.IsZero() {
			continue
		}
		doc, ok := g.Lookup(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		if visited.Has(id) {
			continue
		}
		visited.Add(id)
		if doc.Root {
			affected.Add(id)
		}
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, parent := range g.Incoming(id) {
			if visited.Has(parent) {
				continue
			}
			visited.Add(parent)
			if doc, ok := g.Lookup(parent); ok && doc.Root {
				affected.Add(parent)
			}
			queue = append(queue, parent)
		}
	}
	return affected, unknown
}

// AllRoots returns every top-level document as a set, for forced full
// builds.
func AllRoots(g *graph.Graph) sets.Set[texpath.Canon] {
	return sets.New(g.Roots()...)
}

// Trace explains one resolution: the reference chain connecting a changed
// document to an affected root.
type Trace struct {
	Root texpath.Canon
	// Path walks from the changed document along incoming references up
	// to Root. A changed root traces to itself with a single entry.
	Path []texpath.Canon
}

// Explain runs the same traversal as Affected but records, per affected
// root, the shortest chain from a changed document to that root. Traces
// come back sorted by root.
func Explain(g *graph.Graph, changed []texpath.Canon) []Trace {
	visited := sets.New[texpath.Canon]()
	via := make(map[texpath.Canon]texpath.Canon)
	var roots []texpath.Canon
	var queue []texpath.Canon

	for _, id := range changed {
		if id.IsZero() || visited.Has(id) {
			continue
		}
		doc, ok := g.Lookup(id)
		if !ok {
			continue
		}
		visited.Add(id)
		if doc.Root {
			roots = append(roots, id)
		}
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, parent := range g.Incoming(id) {
			if visited.Has(parent) {
				continue
			}
			visited.Add(parent)
			via[parent] = id
			if doc, ok := g.Lookup(parent); ok && doc.Root {
				roots = append(roots, parent)
			}
			queue = append(queue, parent)
		}
	}

	traces := make([]Trace, 0, len(roots))
	for _, root := range roots {
		path := []texpath.Canon{root}
		for cur := root; ; {
			next, ok := via[cur]
			if !ok {
				break
			}
			path = append(path, next)
			cur = next
		}
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
		traces = append(traces, Trace{Root: root, Path: path})
	}
	sort.Slice(traces, func(i, j int) bool { return traces[i].Root < traces[j].Root })
	return traces
}

// Sorted returns the members of s in lexical order.
func Sorted(s sets.Set[texpath.Canon]) []texpath.Canon {
	out := s.Values()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
