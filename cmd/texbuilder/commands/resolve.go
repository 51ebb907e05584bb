package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
)

// ResolveCmd implements the 'resolve' command: the analysis half of a
// build, for answering "what would this change rebuild?".
type ResolveCmd struct {
	Changed []string `arg:"" optional:"" help:"Corpus-relative files to treat as changed. Default is the dirty files of the corpus git tree."`
	All     bool     `short:"a" help:"Select every root document"`
	Explain bool     `help:"Show the reference chain from a changed document to each root"`
	Exclude []string `short:"x" help:"Extra files to exclude for this run, on top of the configured exclusions"`
}

func (r *ResolveCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return err
	}
	if len(r.Exclude) > 0 {
		cfg.Build.ExcludeFiles = append(cfg.Build.ExcludeFiles, splitPaths(r.Exclude)...)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	svc := build.NewService(cfg)
	report, err := svc.Run(context.Background(), build.Request{
		Changed: splitPaths(r.Changed),
		All:     r.All,
		DryRun:  true,
		Explain: r.Explain,
		Trigger: build.TriggerCLI,
	})
	printResolution(os.Stdout, report)
	return err
}

func printResolution(w io.Writer, r *build.Report) {
	fmt.Fprintf(w, "Changed:   %s\n", joinCanon(r.Changed))
	if len(r.Unknown) > 0 {
		fmt.Fprintf(w, "Unknown:   %s\n", joinCanon(r.Unknown))
	}
	fmt.Fprintf(w, "Affected:  %s\n", joinCanon(r.Affected))
	if len(r.Excluded) > 0 {
		fmt.Fprintf(w, "Excluded:  %s\n", joinCanon(r.Excluded))
	}
	fmt.Fprintf(w, "Build set: %s\n", joinCanon(r.BuildSet))
	for _, tr := range r.Traces {
		fmt.Fprintf(w, "  %s via %s\n", tr.Root, joinChain(tr.Path))
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning [%s] %s: %s\n", warn.Kind, warn.Subject, warn.Detail)
	}
}

func joinChain(ids []texpath.Canon) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, " -> ")
}
