package commands

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" default:"10" help:"Number of runs to list"`
	ID    string `name:"run" help:"Show the per-root details of one run"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return fmt.Errorf("%w: history.path is not configured", config.ErrInvalid)
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.ID != "" {
		return showRun(ctx, store, h.ID)
	}
	return listRuns(ctx, store, h.Limit)
}

func listRuns(ctx context.Context, store *history.Store, limit int) error {
	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-36s  %-19s  %-8s  %-8s  %5s  %6s  %5s\n",
		"RUN", "STARTED", "STATUS", "TRIGGER", "BUILT", "FAILED", "WARN")
	for _, run := range runs {
		fmt.Printf("%-36s  %-19s  %-8s  %-8s  %5d  %6d  %5d\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Status,
			run.Reason,
			run.Built,
			run.Failed,
			run.Warnings)
	}
	return nil
}

func showRun(ctx context.Context, store *history.Store, id string) error {
	run, err := store.Run(ctx, id)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	roots, err := store.Roots(ctx, id)
	if err != nil {
		return fmt.Errorf("load run roots: %w", err)
	}

	fmt.Printf("Run %s (%s): %s\n", run.ID, run.Reason, run.Status)
	fmt.Printf("Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Printf("Finished: %s\n", run.FinishedAt.Local().Format(time.RFC3339))
	fmt.Printf("Changed %d, resolved %d, built %d, failed %d, warnings %d\n",
		run.Changed, run.Resolved, run.Built, run.Failed, run.Warnings)
	for _, rr := range roots {
		switch {
		case rr.Error != "":
			fmt.Printf("  FAILED %s: %s\n", rr.Root, rr.Error)
		case rr.Artifact != "":
			fmt.Printf("  built %s -> %s (%s)\n",
				rr.Root, rr.Artifact, rr.Duration.Round(time.Millisecond))
		default:
			fmt.Printf("  %s %s\n", rr.Status, rr.Root)
		}
	}
	return nil
}
