package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct{}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"texbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Rebuild the drafts affected by changed sources"`
	Resolve ResolveCmd `cmd:"" help:"Show which roots a change set would rebuild, without compiling"`
	Watch   WatchCmd   `cmd:"" help:"Watch the corpus and rebuild drafts on change"`
	History HistoryCmd `cmd:"" help:"List recorded build runs"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func joinCanon(ids []texpath.Canon) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}

// splitPaths expands comma-separated entries so "a.tex b.tex" and
// "a.tex,b.tex" spell the same list. Empty tokens are dropped.
func splitPaths(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// printReport renders a run report for the terminal.
func printReport(w io.Writer, r *build.Report) {
	fmt.Fprintf(w, "Run %s (%s): %s in %s\n",
		r.RunID, r.Trigger, r.Status, r.Duration.Round(time.Millisecond))

	if len(r.Changed) > 0 {
		fmt.Fprintf(w, "Changed:  %s\n", joinCanon(r.Changed))
	}
	if len(r.Unknown) > 0 {
		fmt.Fprintf(w, "Unknown:  %s\n", joinCanon(r.Unknown))
	}
	if len(r.Excluded) > 0 {
		fmt.Fprintf(w, "Excluded: %s\n", joinCanon(r.Excluded))
	}

	for _, rr := range r.Roots {
		switch {
		case rr.Status == build.StatusSuccess:
			fmt.Fprintf(w, "  built %s -> %s (%s)\n",
				rr.Root, rr.Artifact, rr.Duration.Round(time.Millisecond))
		case rr.Err != "":
			fmt.Fprintf(w, "  FAILED %s: %s\n", rr.Root, rr.Err)
		default:
			fmt.Fprintf(w, "  %s %s\n", rr.Status, rr.Root)
		}
	}

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  warning [%s] %s: %s\n", warn.Kind, warn.Subject, warn.Detail)
	}
	for _, target := range sortedCountTargets(r.WordCounts) {
		fmt.Fprintf(w, "  words %s: %d\n", target, r.WordCounts[target])
	}
	if r.CommitHash != "" {
		fmt.Fprintf(w, "  committed %s\n", shortHash(r.CommitHash))
	}
}

func sortedCountTargets(counts map[texpath.Canon]int) []texpath.Canon {
	targets := make([]texpath.Canon, 0, len(counts))
	for t := range counts {
		targets = append(targets, t)
	}
	slices.Sort(targets)
	return targets
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
