package observability

import (
	"context"
	"errors"
	"log/slog"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// RunInfo identifies one build run as it flows through scanning,
// resolution, compilation and post-processing.
type RunInfo struct {
	RunID   string
	Trigger string // cli, watch, schedule, startup
}

// Context key for storing run info in the build context
type contextKey string

const runInfoContextKey contextKey = "run_info"

// ErrNoRunInfo is returned when no run info is found in context
var ErrNoRunInfo = errors.New("no run info in context")

// WithRunInfo stores run information in the context
func WithRunInfo(ctx context.Context, info *RunInfo) context.Context {
	return context.WithValue(ctx, runInfoContextKey, info)
}

// FromContext retrieves run information from the context
func FromContext(ctx context.Context) (*RunInfo, error) {
	info, ok := ctx.Value(runInfoContextKey).(*RunInfo)
	if !ok {
		return nil, ErrNoRunInfo
	}
	return info, nil
}

// Logger returns the default logger with the run's identifying attributes
// attached, or unadorned when the context carries none.
func Logger(ctx context.Context) *slog.Logger {
	info, err := FromContext(ctx)
	if err != nil {
		return slog.Default()
	}
	return slog.Default().With(logfields.RunID(info.RunID), logfields.Trigger(info.Trigger))
}
