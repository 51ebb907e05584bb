package compile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
)

// Runner fans document compilations out over a bounded worker pool.
//
// Pass sequence per root: one compiler pass, the bibliography pass when
// enabled, then enough further compiler passes for references to settle:
// two more with bibliography, one without.
type Runner struct {
	tc      Toolchain
	workers int
	rec     metrics.Recorder
}

// NewRunner creates a runner using tc for every pass.
func NewRunner(tc Toolchain) *Runner {
	return &Runner{tc: tc, workers: 1, rec: metrics.NoopRecorder{}}
}

// WithWorkers bounds how many roots compile concurrently.
func (r *Runner) WithWorkers(n int) *Runner {
	if n > 0 {
		r.workers = n
	}
	return r
}

// WithRecorder attaches a metrics recorder.
func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	if rec != nil {
		r.rec = rec
	}
	return r
}

// RootResult is the outcome of one root's pass sequence.
type RootResult struct {
	Job      Job
	Err      error
	Passes   int
	Duration time.Duration
}

// Success reports whether every pass completed.
func (r RootResult) Success() bool { return r.Err == nil }

// CompileAll compiles jobs with bounded parallelism and returns one
// result per job in input order. A failing root never stops the others;
// context cancelation does.
func (r *Runner) CompileAll(ctx context.Context, jobs []Job) []RootResult {
	results := make([]RootResult, len(jobs))
	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.compileOne(ctx, jobs[i])
		}(i)
	}
	wg.Wait()
	return results
}

type pass int

const (
	passCompile pass = iota
	passBiber
)

func passSequence(biber bool) []pass {
	if biber {
		return []pass{passCompile, passBiber, passCompile, passCompile}
	}
	return []pass{passCompile, passCompile}
}

func (r *Runner) compileOne(ctx context.Context, job Job) RootResult {
	start := time.Now()
	res := RootResult{Job: job}
	defer func() {
		res.Duration = time.Since(start)
		r.rec.ObserveRootDuration(job.Root.String(), res.Duration, res.Err == nil)
	}()

	slog.Info("Compiling document",
		logfields.Root(job.Root.String()), logfields.Compiler(job.Compiler))

	for _, p := range passSequence(job.Biber) {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		var err error
		switch p {
		case passCompile:
			err = r.tc.Compile(ctx, job)
		case passBiber:
			err = r.tc.Bibliography(ctx, job)
		}
		res.Passes++
		if err != nil {
			res.Err = err
			return res
		}
	}
	return res
}
