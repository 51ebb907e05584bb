package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/events"
	"git.home.luguber.info/inful/texbuilder/internal/history"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Changed []string `arg:"" optional:"" help:"Corpus-relative files to treat as changed. Default is the dirty files of the corpus git tree."`
	All     bool     `short:"a" help:"Rebuild every root document"`
	DryRun  bool     `name:"dry-run" help:"Resolve and report the build set without compiling"`
	Exclude []string `short:"x" help:"Extra files to exclude for this run, on top of the configured exclusions"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return err
	}
	if len(b.Exclude) > 0 {
		cfg.Build.ExcludeFiles = append(cfg.Build.ExcludeFiles, splitPaths(b.Exclude)...)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := build.NewService(cfg)

	// History and events are best effort for one-shot builds; a missing
	// database or broker must not block compiling.
	if cfg.History.Path != "" {
		store, herr := history.Open(cfg.History.Path)
		if herr != nil {
			slog.Warn("History store unavailable", logfields.Error(herr))
		} else {
			defer func() { _ = store.Close() }()
			svc.WithHistory(store)
		}
	}
	if cfg.Watch.NATSURL != "" {
		pub, perr := events.NewPublisher(cfg.Watch.NATSURL, cfg.Watch.NATSSubject)
		if perr != nil {
			slog.Warn("Event publisher unavailable", logfields.Error(perr))
		} else {
			defer func() { _ = pub.Close() }()
			svc.WithPublisher(pub)
		}
	}

	report, err := svc.Run(ctx, build.Request{
		Changed: splitPaths(b.Changed),
		All:     b.All,
		DryRun:  b.DryRun,
		Trigger: build.TriggerCLI,
	})
	printReport(os.Stdout, report)
	return err
}
