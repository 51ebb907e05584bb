package metrics

import "time"

// Recorder defines observability hooks for build runs. Implementations
// may forward to Prometheus, OpenTelemetry, etc. The NoopRecorder keeps
// call sites unconditional when metrics are not configured.
type Recorder interface {
	ObserveRunDuration(d time.Duration)
	ObserveRootDuration(root string, d time.Duration, success bool)
	IncRunOutcome(outcome string) // outcome: success|failed|skipped
	IncRootResult(success bool)
	SetResolvedRoots(n int)
	AddArtifactsEvicted(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRunDuration(time.Duration)                {}
func (NoopRecorder) ObserveRootDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncRunOutcome(string)                            {}
func (NoopRecorder) IncRootResult(bool)                              {}
func (NoopRecorder) SetResolvedRoots(int)                            {}
func (NoopRecorder) AddArtifactsEvicted(int)                         {}
