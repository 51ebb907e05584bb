package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"git.home.luguber.info/inful/texbuilder/internal/corpus"
	"git.home.luguber.info/inful/texbuilder/internal/graph"
	"git.home.luguber.info/inful/texbuilder/internal/resolve"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
)

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	files, err := corpus.NewScanner(root).Scan(context.Background())
	if err != nil {
		log.Fatalf("Scan() error: %v", err)
	}
	fmt.Printf("Scanned %d source files under %s\n", len(files), root)

	g := graph.Build(files)
	fmt.Printf("Graph: %d documents, %d roots\n", g.Len(), len(g.Roots()))

	for _, doc := range g.Documents() {
		marker := " "
		if doc.Root {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, doc.Identity)
		for _, ref := range doc.Refs {
			fmt.Printf("    -> %s\n", ref)
		}
	}

	for _, d := range g.Dangling() {
		fmt.Printf("dangling: %s -> %q\n", d.Source, d.Raw)
	}

	// Show what a change to each non-root document would rebuild.
	for _, doc := range g.Documents() {
		if doc.Root {
			continue
		}
		affected, _ := resolve.Affected(g, []texpath.Canon{doc.Identity})
		fmt.Printf("change %s rebuilds %v\n", doc.Identity, resolve.Sorted(affected))
	}
}
