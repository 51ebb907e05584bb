package build

import "errors"

// ErrRunFailed marks a run in which at least one step failed: a root that
// did not compile, a commit that could not be recorded, or a setup problem
// that stopped the run outright. Callers map it to the process exit status.
var ErrRunFailed = errors.New("build run failed")
