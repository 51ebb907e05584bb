package graph

import (
	"log/slog"
	"sort"

	"git.home.luguber.info/inful/texbuilder/internal/corpus"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
	"git.home.luguber.info/inful/texbuilder/internal/util/sets"
)

// Document is one node of the inclusion graph.
type Document struct {
	Identity texpath.Canon
	RelPath  string
	AbsPath  string
	Root     bool
	// Refs holds the normalized outgoing references in source order,
	// duplicates removed. Targets outside the corpus stay listed here
	// and additionally show up in Dangling.
	Refs []texpath.Canon
}

// Dangling records a reference whose target is not part of the corpus.
// Target is zero when the spelling had no canonical form at all.
type Dangling struct {
	Source texpath.Canon
	Target texpath.Canon
	Raw    string
}

// Graph is the document inclusion graph for one corpus snapshot. It is
// immutable after Build and safe for concurrent readers.
type Graph struct {
	docs     map[texpath.Canon]*Document
	order    []texpath.Canon
	incoming map[texpath.Canon][]texpath.Canon
	roots    []texpath.Canon
	dangling []Dangling
}

// Build assembles the graph from scanned corpus files. Duplicate
// identities keep the first occurrence; edges to targets outside the
// corpus are recorded as dangling and never indexed for traversal.
func Build(files []corpus.File) *Graph {
	g := &Graph{
		docs:     make(map[texpath.Canon]*Document, len(files)),
		incoming: make(map[texpath.Canon][]texpath.Canon),
	}

	byID := make(map[texpath.Canon]*corpus.File, len(files))
	for i := range files {
		f := &files[i]
		if f.Identity.IsZero() {
			continue
		}
		if _, dup := g.docs[f.Identity]; dup {
			slog.Warn("Duplicate document identity, keeping first occurrence",
				logfields.Document(f.Identity.String()), logfields.Path(f.RelPath))
			continue
		}
		doc := &Document{
			Identity: f.Identity,
			RelPath:  f.RelPath,
			AbsPath:  f.AbsPath,
			Root:     f.Scan.Root,
		}
		g.docs[f.Identity] = doc
		g.order = append(g.order, f.Identity)
		if doc.Root {
			g.roots = append(g.roots, f.Identity)
		}
		byID[f.Identity] = f
	}

	for _, id := range g.order {
		doc := g.docs[id]
		seen := sets.New[texpath.Canon]()
		for _, raw := range byID[id].Scan.References {
			target := texpath.Normalize(raw)
			if target.IsZero() {
				g.dangling = append(g.dangling, Dangling{Source: id, Raw: raw})
				continue
			}
			if seen.Has(target) {
				continue
			}
			seen.Add(target)
			doc.Refs = append(doc.Refs, target)
			if _, ok := g.docs[target]; ok {
				g.incoming[target] = append(g.incoming[target], id)
			} else {
				g.dangling = append(g.dangling, Dangling{Source: id, Target: target, Raw: raw})
			}
		}
	}

	for _, parents := range g.incoming {
		sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })
	}
	return g
}

// Lookup returns the document with the given identity.
func (g *Graph) Lookup(id texpath.Canon) (*Document, bool) {
	doc, ok := g.docs[id]
	return doc, ok
}

// Documents returns all documents in walk order.
func (g *Graph) Documents() []*Document {
	out := make([]*Document, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.docs[id])
	}
	return out
}

// Roots returns the identities of all top-level documents, in walk order.
func (g *Graph) Roots() []texpath.Canon {
	out := make([]texpath.Canon, len(g.roots))
	copy(out, g.roots)
	return out
}

// Incoming returns the identities of documents referencing id, sorted.
func (g *Graph) Incoming(id texpath.Canon) []texpath.Canon {
	return g.incoming[id]
}

// Dangling returns every reference whose target is outside the corpus.
func (g *Graph) Dangling() []Dangling {
	return g.dangling
}

// Len returns the number of documents in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Closure returns id plus every document transitively included by it, in
// breadth-first order. Targets outside the corpus contribute nothing.
// Cycles terminate because no document is visited twice.
func (g *Graph) Closure(id texpath.Canon) []texpath.Canon {
	if _, ok := g.docs[id]; !ok {
		return nil
	}
	visited := sets.New(id)
	out := []texpath.Canon{id}
	queue := []texpath.Canon{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ref := range g.docs[cur].Refs {
			if visited.Has(ref) {
				continue
			}
			visited.Add(ref)
			if _, ok := g.docs[ref]; !ok {
				continue
			}
			out = append(out, ref)
			queue = append(queue, ref)
		}
	}
	return out
}
