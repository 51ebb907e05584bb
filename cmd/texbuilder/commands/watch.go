package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct{}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := watch.New(cfg)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	return d.Run(ctx)
}
