package errors

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/config"
)

// Exit codes reported to the shell. Scripts key on these, so the values
// are stable.
const (
	ExitOK      = 0
	ExitGeneral = 1
	ExitUsage   = 2
	ExitConfig  = 7
	ExitBuild   = 11
)

// CLIErrorAdapter handles error presentation and exit code determination
// for the command line front end.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stdErrors.Is(err, config.ErrInvalid):
		return ExitConfig
	case stdErrors.Is(err, build.ErrRunFailed):
		return ExitBuild
	default:
		return ExitGeneral
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// HandleError prints an error and exits the program with the appropriate
// code. A nil error returns without exiting.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	if a.verbose {
		a.logger.Error("Command failed", slog.Any("error", err))
	}

	fmt.Fprintf(os.Stderr, "%s\n", a.FormatError(err))
	os.Exit(a.ExitCodeFor(err))
}
