package graph

import (
	"reflect"
	"testing"

	"git.home.luguber.info/inful/texbuilder/internal/corpus"
	"git.home.luguber.info/inful/texbuilder/internal/scan"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
)

func doc(id, rel string, root bool, refs ...string) corpus.File {
	return corpus.File{
		Identity: texpath.Canon(id),
		RelPath:  rel,
		AbsPath:  "/corpus/" + rel,
		Scan:     scan.Result{Root: root, References: refs},
	}
}

func TestBuildNodesAndRoots(t *testing.T) {
	g := Build([]corpus.File{
		doc("main", "main.tex", true, "chapters/ch1"),
		doc("chapters/ch1", "chapters/ch1.tex", false),
		doc("standalone", "standalone.tex", true),
	})

	if g.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", g.Len())
	}
	if got := g.Roots(); !reflect.DeepEqual(got, []texpath.Canon{"main", "standalone"}) {
		t.Errorf("Roots() = %v", got)
	}
	if d, ok := g.Lookup("chapters/ch1"); !ok || d.Root {
		t.Errorf("chapters/ch1 lookup = %+v, %v", d, ok)
	}
	if _, ok := g.Lookup("missing"); ok {
		t.Error("Lookup for absent identity succeeded")
	}
}

func TestBuildNormalizesAndDeduplicatesRefs(t *testing.T) {
	g := Build([]corpus.File{
		doc("main", "main.tex", true, "chapters/ch1", "./chapters/ch1.tex", "chapters/ch2"),
		doc("chapters/ch1", "chapters/ch1.tex", false),
		doc("chapters/ch2", "chapters/ch2.tex", false),
	})

	d, _ := g.Lookup("main")
	want := []texpath.Canon{"chapters/ch1", "chapters/ch2"}
	if !reflect.DeepEqual(d.Refs, want) {
		t.Errorf("Refs = %v, want %v", d.Refs, want)
	}
	if got := g.Incoming("chapters/ch1"); !reflect.DeepEqual(got, []texpath.Canon{"main"}) {
		t.Errorf("Incoming(ch1) = %v", got)
	}
}

func TestBuildRecordsDangling(t *testing.T) {
	g := Build([]corpus.File{
		doc("main", "main.tex", true, "ghost", "../outside"),
	})

	dang := g.Dangling()
	if len(dang) != 2 {
		t.Fatalf("Dangling() = %v", dang)
	}
	if dang[0].Target != "ghost" || dang[0].Source != "main" {
		t.Errorf("first dangling = %+v", dang[0])
	}
	// The escaping spelling has no canonical form at all.
	if !dang[1].Target.IsZero() || dang[1].Raw != "../outside" {
		t.Errorf("second dangling = %+v", dang[1])
	}
	// Dangling targets must not gain traversal edges.
	if got := g.Incoming("ghost"); len(got) != 0 {
		t.Errorf("Incoming(ghost) = %v", got)
	}
}

func TestBuildDuplicateIdentityKeepsFirst(t *testing.T) {
	g := Build([]corpus.File{
		doc("ch1", "ch1.tex", false),
		doc("ch1", "CH1.tex", true),
	})

	if g.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", g.Len())
	}
	d, _ := g.Lookup("ch1")
	if d.RelPath != "ch1.tex" || d.Root {
		t.Errorf("kept document = %+v", d)
	}
}

func TestClosure(t *testing.T) {
	g := Build([]corpus.File{
		doc("main", "main.tex", true, "a", "b"),
		doc("a", "a.tex", false, "c"),
		doc("b", "b.tex", false, "c", "ghost"),
		doc("c", "c.tex", false, "a"), // cycle back into a
		doc("lonely", "lonely.tex", false),
	})

	got := g.Closure("main")
	want := []texpath.Canon{"main", "a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Closure(main) = %v, want %v", got, want)
	}

	if got := g.Closure("lonely"); !reflect.DeepEqual(got, []texpath.Canon{"lonely"}) {
		t.Errorf("Closure(lonely) = %v", got)
	}
	if got := g.Closure("absent"); got != nil {
		t.Errorf("Closure(absent) = %v", got)
	}
}
