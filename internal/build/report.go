package build

import (
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/resolve"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
)

// Status represents the outcome of a run or of one root within it.
type Status string

const (
	// StatusSuccess indicates everything that was attempted worked.
	StatusSuccess Status = "success"

	// StatusFailed indicates at least one step failed.
	StatusFailed Status = "failed"

	// StatusSkipped indicates nothing needed building.
	StatusSkipped Status = "skipped"
)

// IsSuccess returns true when the status carries no failure.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusSkipped
}

// WarningKind classifies non-fatal problems surfaced by a run.
type WarningKind string

const (
	WarnDanglingReference WarningKind = "dangling_reference"
	WarnEvictionFailed    WarningKind = "eviction_failed"
	WarnWordcount         WarningKind = "wordcount"
	WarnCommit            WarningKind = "commit"
	WarnHistory           WarningKind = "history"
	WarnEvents            WarningKind = "events"
)

// Warning is one non-fatal problem. Subject names the thing it concerns
// (a document identity, an artifact name), Detail says what went wrong.
type Warning struct {
	Kind    WarningKind
	Subject string
	Detail  string
}

// RootReport is the outcome of building one top-level document.
type RootReport struct {
	Root     texpath.Canon
	Status   Status
	Artifact string // corpus-relative path of the published artifact
	Evicted  []string
	Duration time.Duration
	Err      string
}

// Report describes one complete run: what changed, what was resolved,
// what was built and with which outcome.
type Report struct {
	RunID      string
	Trigger    string
	StartedAt  time.Time
	Duration   time.Duration
	Status     Status
	Changed    []texpath.Canon
	Unknown    []texpath.Canon
	Affected   []texpath.Canon
	Excluded   []texpath.Canon
	BuildSet   []texpath.Canon
	// Traces is only populated for Request.Explain runs.
	Traces     []resolve.Trace
	Roots      []RootReport
	Warnings   []Warning
	WordCounts map[texpath.Canon]int
	CommitHash string
}

// Failed counts roots that did not build.
func (r *Report) Failed() int {
	n := 0
	for _, root := range r.Roots {
		if root.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Built counts roots that produced an artifact.
func (r *Report) Built() int {
	n := 0
	for _, root := range r.Roots {
		if root.Status == StatusSuccess {
			n++
		}
	}
	return n
}
