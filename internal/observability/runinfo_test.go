package observability

import (
	"context"
	"errors"
	"testing"
)

func TestWithRunInfoRoundTrip(t *testing.T) {
	ctx := WithRunInfo(context.Background(), &RunInfo{RunID: "r1", Trigger: "cli"})

	info, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext: %v", err)
	}
	if info.RunID != "r1" || info.Trigger != "cli" {
		t.Fatalf("unexpected run info: %+v", info)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, err := FromContext(context.Background()); !errors.Is(err, ErrNoRunInfo) {
		t.Fatalf("expected ErrNoRunInfo, got %v", err)
	}
}

func TestLoggerWithoutRunInfo(t *testing.T) {
	// Must not panic and must return a usable logger.
	log := Logger(context.Background())
	if log == nil {
		t.Fatal("Logger returned nil")
	}
	log.Debug("no run info attached")
}
