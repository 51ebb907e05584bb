package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texbuilder/cmd/texbuilder/commands"
	apperrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("texbuilder"),
		kong.Description("Incremental draft builder for LaTeX corpora."),
		kong.UsageOnError(),
		kong.Vars{"version": versionString()},
		// Kong exits non-zero on bad flags or commands; fold those into
		// the usage exit code and keep --help's zero untouched.
		kong.Exit(func(code int) {
			if code != 0 {
				code = apperrors.ExitUsage
			}
			os.Exit(code)
		}),
	)

	adapter := apperrors.NewCLIErrorAdapter(cli.Verbose, nil)
	adapter.HandleError(ctx.Run(&commands.Global{}, &cli))
}

func versionString() string {
	return fmt.Sprintf("texbuilder %s (commit %s, built %s)",
		version.Version, version.GitCommit, version.BuildTime)
}
