// Package build provides the canonical build execution pipeline for
// texbuilder. All execution paths (CLI, daemon, tests) route through
// Service.Run.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/texbuilder/internal/artifacts"
	"git.home.luguber.info/inful/texbuilder/internal/changes"
	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/corpus"
	"git.home.luguber.info/inful/texbuilder/internal/events"
	"git.home.luguber.info/inful/texbuilder/internal/graph"
	"git.home.luguber.info/inful/texbuilder/internal/history"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/observability"
	"git.home.luguber.info/inful/texbuilder/internal/resolve"
	"git.home.luguber.info/inful/texbuilder/internal/scan"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
	"git.home.luguber.info/inful/texbuilder/internal/util/sets"
	"git.home.luguber.info/inful/texbuilder/internal/vcs"
	"git.home.luguber.info/inful/texbuilder/internal/wordcount"
	"git.home.luguber.info/inful/texbuilder/internal/workspace"
)

// Trigger tags describing what started a run.
const (
	TriggerCLI      = "cli"
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
)

// Request contains the inputs for one build invocation.
type Request struct {
	// Changed names the files to treat as changed. When empty and All is
	// false, the git working tree decides.
	Changed []string

	// All builds every root regardless of changes.
	All bool

	// DryRun resolves the build set but compiles nothing.
	DryRun bool

	// Explain records, per resolved root, the reference chain linking it
	// to the change set.
	Explain bool

	// Trigger tags the run for logs, history and events.
	Trigger string
}

// Service orchestrates a build run end to end: scan, resolve, compile,
// publish, retain, count words, commit.
type Service struct {
	cfg   *config.Config
	tc    compile.Toolchain
	rec   metrics.Recorder
	store *history.Store
	pub   *events.Publisher
	cache *scan.Cache
	ws    *workspace.Manager
}

// NewService creates a Service that compiles with the configured binary
// toolchain and records nothing.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg: cfg,
		tc:  compile.BinaryToolchain{},
		rec: metrics.NoopRecorder{},
	}
}

// WithToolchain injects the typesetting toolchain (for testing).
func (s *Service) WithToolchain(tc compile.Toolchain) *Service {
	s.tc = tc
	return s
}

// WithRecorder attaches a metrics recorder.
func (s *Service) WithRecorder(rec metrics.Recorder) *Service {
	if rec != nil {
		s.rec = rec
	}
	return s
}

// WithHistory attaches a run history store.
func (s *Service) WithHistory(store *history.Store) *Service {
	s.store = store
	return s
}

// WithPublisher attaches an event publisher.
func (s *Service) WithPublisher(pub *events.Publisher) *Service {
	s.pub = pub
	return s
}

// WithScanCache attaches a scan cache shared across runs.
func (s *Service) WithScanCache(cache *scan.Cache) *Service {
	s.cache = cache
	return s
}

// WithWorkspace injects a workspace manager. The caller keeps ownership:
// the service will not clean it up, which is how the daemon reuses aux
// files between runs.
func (s *Service) WithWorkspace(ws *workspace.Manager) *Service {
	s.ws = ws
	return s
}

// Run executes one build run and returns its report. The error is non-nil
// exactly when the report status is failed, and always wraps ErrRunFailed.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	started := time.Now()
	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerCLI
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: started,
		Status:    StatusSuccess,
	}
	ctx = observability.WithRunInfo(ctx, &observability.RunInfo{RunID: report.RunID, Trigger: trigger})
	log := observability.Logger(ctx)

	err := s.execute(ctx, req, report)
	report.Duration = time.Since(started)

	s.rec.ObserveRunDuration(report.Duration)
	s.rec.IncRunOutcome(string(report.Status))

	if !req.DryRun {
		s.recordHistory(ctx, report)
		s.publishEvent(ctx, report)
	}

	if err != nil {
		log.Error("Run failed", logfields.Error(err), logfields.DurationMS(float64(report.Duration.Milliseconds())))
	} else {
		log.Info("Run finished",
			"status", string(report.Status),
			logfields.Count(report.Built()),
			logfields.DurationMS(float64(report.Duration.Milliseconds())))
	}
	return report, err
}

func (s *Service) execute(ctx context.Context, req Request, report *Report) error {
	log := observability.Logger(ctx)

	excl, err := resolve.NewExclusionSet(s.cfg.Build.ExcludeFiles)
	if err != nil {
		report.Status = StatusFailed
		return fmt.Errorf("%w: exclusion set: %v", ErrRunFailed, err)
	}

	corpusDir, err := filepath.Abs(s.cfg.Corpus.Root)
	if err != nil {
		report.Status = StatusFailed
		return fmt.Errorf("%w: resolve corpus root: %v", ErrRunFailed, err)
	}

	files, err := corpus.NewScanner(corpusDir).
		WithWorkers(s.cfg.Build.Concurrency).
		WithCache(s.cache).
		Scan(ctx)
	if err != nil {
		report.Status = StatusFailed
		return fmt.Errorf("%w: scan corpus: %v", ErrRunFailed, err)
	}

	g := graph.Build(files)
	for _, d := range g.Dangling() {
		report.Warnings = append(report.Warnings, Warning{
			Kind:    WarnDanglingReference,
			Subject: d.Source.String(),
			Detail:  fmt.Sprintf("unresolved reference %q", d.Raw),
		})
		log.Warn("Dangling reference", logfields.Document(d.Source.String()), logfields.Target(d.Raw))
	}

	changed, err := s.changedSet(g, req, corpusDir)
	if err != nil {
		report.Status = StatusFailed
		return err
	}
	report.Changed = changed

	affected, unknown := resolve.Affected(g, changed)
	report.Unknown = unknown
	for _, id := range unknown {
		log.Debug("Changed file is not part of the corpus", logfields.Document(id.String()))
	}
	report.Affected = resolve.Sorted(affected)

	buildSet, excluded := excl.Filter(affected)
	report.BuildSet = buildSet
	report.Excluded = excluded
	s.rec.SetResolvedRoots(len(buildSet))
	warnSharedBasenames(log, buildSet)

	if req.Explain {
		inBuild := sets.New(buildSet...)
		for _, tr := range resolve.Explain(g, changed) {
			if inBuild.Has(tr.Root) {
				report.Traces = append(report.Traces, tr)
			}
		}
	}

	log.Info("Resolved build set",
		logfields.Count(len(buildSet)),
		"changed", len(changed),
		"affected", len(report.Affected),
		"excluded", len(excluded))

	if len(buildSet) == 0 {
		report.Status = StatusSkipped
		log.Info("Nothing to build")
		return nil
	}

	if req.DryRun {
		log.Info("Dry run, skipping compilation", logfields.Count(len(buildSet)))
		return nil
	}

	ws := s.ws
	owned := ws == nil
	if owned {
		ws = workspace.NewManager(s.cfg.Build.WorkDir)
	}
	if err := ws.Create(); err != nil {
		report.Status = StatusFailed
		return fmt.Errorf("%w: workspace: %v", ErrRunFailed, err)
	}
	if owned {
		defer func() {
			if cerr := ws.Cleanup(); cerr != nil {
				log.Warn("Workspace cleanup failed", logfields.Error(cerr))
			}
		}()
	}

	jobs := make([]compile.Job, 0, len(buildSet))
	for _, id := range buildSet {
		doc, ok := g.Lookup(id)
		if !ok {
			continue
		}
		staging, serr := ws.Staging(id)
		if serr != nil {
			report.Status = StatusFailed
			return fmt.Errorf("%w: staging for %s: %v", ErrRunFailed, id, serr)
		}
		jobs = append(jobs, compile.Job{
			Root:       id,
			Source:     doc.RelPath,
			CorpusDir:  corpusDir,
			StagingDir: staging,
			Compiler:   s.cfg.Corpus.Compiler,
			Biber:      s.cfg.Corpus.Biber,
		})
	}

	results := compile.NewRunner(s.tc).
		WithWorkers(s.cfg.Build.Concurrency).
		WithRecorder(s.rec).
		CompileAll(ctx, jobs)

	policy := artifacts.Policy{
		Dir:       filepath.Join(corpusDir, s.cfg.Output.Directory),
		Extension: s.cfg.Output.Extension,
		MaxDrafts: s.cfg.Output.MaxDrafts,
	}
	stamp := time.Now()

	var commitAdd, commitRemove []string
	for _, res := range results {
		rr := s.publishRoot(ctx, res, policy, stamp, report, &commitAdd, &commitRemove)
		report.Roots = append(report.Roots, rr)
	}
	if report.Failed() > 0 {
		report.Status = StatusFailed
	}

	s.updateWordCounts(ctx, g, excl, report, &commitAdd)

	s.commit(ctx, corpusDir, commitAdd, commitRemove, report)

	if report.Status == StatusFailed {
		if n := report.Failed(); n > 0 {
			return fmt.Errorf("%w: %d of %d roots failed", ErrRunFailed, n, len(report.Roots))
		}
		return fmt.Errorf("%w: draft commit failed", ErrRunFailed)
	}
	return nil
}

// warnSharedBasenames flags roots whose artifact families collide.
// Retention is keyed by basename within one output directory, so two
// such roots evict each other's drafts.
func warnSharedBasenames(log *slog.Logger, buildSet []texpath.Canon) {
	byBase := make(map[string][]texpath.Canon)
	for _, id := range buildSet {
		byBase[id.Base()] = append(byBase[id.Base()], id)
	}
	for base, ids := range byBase {
		if len(ids) > 1 {
			log.Warn("Roots share an artifact basename", "base", base, logfields.Count(len(ids)))
		}
	}
}

// changedSet decides which identities count as changed for this run.
func (s *Service) changedSet(g *graph.Graph, req Request, corpusDir string) ([]texpath.Canon, error) {
	switch {
	case req.All:
		return resolve.Sorted(resolve.AllRoots(g)), nil
	case len(req.Changed) > 0:
		set := sets.New[texpath.Canon]()
		for _, raw := range req.Changed {
			id, err := texpath.NormalizeWithError(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: changed path %q: %v", ErrRunFailed, raw, err)
			}
			set.Add(id)
		}
		return resolve.Sorted(set), nil
	default:
		ids, err := changes.NewDetector(corpusDir).Detect()
		if err != nil {
			return nil, fmt.Errorf("%w: detect changes: %w", ErrRunFailed, err)
		}
		return ids, nil
	}
}

func (s *Service) publishRoot(ctx context.Context, res compile.RootResult, policy artifacts.Policy, stamp time.Time, report *Report, commitAdd, commitRemove *[]string) RootReport {
	log := observability.Logger(ctx)
	rr := RootReport{Root: res.Job.Root, Duration: res.Duration}

	if res.Err != nil {
		rr.Status = StatusFailed
		rr.Err = res.Err.Error()
		s.rec.IncRootResult(false)
		log.Error("Root build failed", logfields.Root(res.Job.Root.String()), logfields.Error(res.Err))
		return rr
	}

	base := res.Job.Root.Base()
	art, err := policy.Publish(res.Job.OutputFile(), base, stamp)
	if err != nil {
		rr.Status = StatusFailed
		rr.Err = fmt.Sprintf("publish artifact: %v", err)
		s.rec.IncRootResult(false)
		log.Error("Artifact publish failed", logfields.Root(res.Job.Root.String()), logfields.Error(err))
		return rr
	}
	rr.Artifact = filepath.ToSlash(filepath.Join(s.cfg.Output.Directory, art.Name))
	*commitAdd = append(*commitAdd, art.Path)

	rec, err := policy.Reconcile(base)
	if err != nil {
		report.Warnings = append(report.Warnings, Warning{Kind: WarnEvictionFailed, Subject: base, Detail: err.Error()})
		log.Warn("Retention reconcile failed", logfields.Root(res.Job.Root.String()), logfields.Error(err))
	} else {
		for _, ev := range rec.Evicted {
			rr.Evicted = append(rr.Evicted, ev.Name)
			*commitRemove = append(*commitRemove, ev.Path)
		}
		if n := len(rec.Evicted); n > 0 {
			s.rec.AddArtifactsEvicted(n)
			log.Info("Evicted old drafts", logfields.Root(res.Job.Root.String()), logfields.Count(n))
		}
		for _, f := range rec.Failed {
			report.Warnings = append(report.Warnings, Warning{Kind: WarnEvictionFailed, Subject: f.Artifact.Name, Detail: f.Err.Error()})
			log.Warn("Draft eviction failed", logfields.Artifact(f.Artifact.Name), logfields.Error(f.Err))
		}
	}

	rr.Status = StatusSuccess
	s.rec.IncRootResult(true)
	log.Info("Published draft",
		logfields.Root(res.Job.Root.String()),
		logfields.Artifact(art.Name),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return rr
}

// updateWordCounts rewrites the counter macro of each configured target
// with the word total of the target's whole inclusion subtree. Problems
// here never fail the run.
func (s *Service) updateWordCounts(ctx context.Context, g *graph.Graph, excl *resolve.ExclusionSet, report *Report, commitAdd *[]string) {
	if len(s.cfg.Wordcount.Files) == 0 {
		return
	}
	log := observability.Logger(ctx)

	targets := make([]texpath.Canon, 0, len(s.cfg.Wordcount.Files))
	for _, raw := range s.cfg.Wordcount.Files {
		id, err := texpath.NormalizeWithError(raw)
		if err != nil {
			report.Warnings = append(report.Warnings, Warning{Kind: WarnWordcount, Subject: raw, Detail: err.Error()})
			continue
		}
		targets = append(targets, id)
	}

	kept, skipped := excl.FilterSlice(targets)
	for _, id := range skipped {
		log.Debug("Word count target excluded", logfields.Target(id.String()))
	}
	if len(kept) > 0 && report.WordCounts == nil {
		report.WordCounts = make(map[texpath.Canon]int, len(kept))
	}

	for _, id := range kept {
		doc, ok := g.Lookup(id)
		if !ok {
			report.Warnings = append(report.Warnings, Warning{Kind: WarnWordcount, Subject: id.String(), Detail: "document not found in corpus"})
			log.Warn("Word count target missing from corpus", logfields.Target(id.String()))
			continue
		}

		total, err := s.countSubtree(g, id)
		if err != nil {
			report.Warnings = append(report.Warnings, Warning{Kind: WarnWordcount, Subject: id.String(), Detail: err.Error()})
			log.Warn("Word count failed", logfields.Target(id.String()), logfields.Error(err))
			continue
		}

		updated, err := wordcount.UpdateCounter(doc.AbsPath, s.cfg.Wordcount.Macro, total)
		if err != nil {
			report.Warnings = append(report.Warnings, Warning{Kind: WarnWordcount, Subject: id.String(), Detail: err.Error()})
			log.Warn("Word count update failed", logfields.Target(id.String()), logfields.Error(err))
			continue
		}
		report.WordCounts[id] = total
		if updated {
			*commitAdd = append(*commitAdd, doc.AbsPath)
			log.Info("Updated word count", logfields.Target(id.String()), logfields.Count(total))
		}
	}
}

// countSubtree sums the prose words of id and everything it includes,
// directly or transitively.
func (s *Service) countSubtree(g *graph.Graph, id texpath.Canon) (int, error) {
	total := 0
	for _, member := range g.Closure(id) {
		doc, ok := g.Lookup(member)
		if !ok {
			continue
		}
		data, err := os.ReadFile(doc.AbsPath)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", doc.RelPath, err)
		}
		total += wordcount.Count(data)
	}
	return total, nil
}

func (s *Service) commit(ctx context.Context, corpusDir string, add, remove []string, report *Report) {
	if !s.cfg.Commit.Enabled || len(add)+len(remove) == 0 {
		return
	}
	log := observability.Logger(ctx)

	hash, err := vcs.NewCommitter(corpusDir).Commit(vcs.Request{
		Add:     add,
		Remove:  remove,
		Message: s.cfg.Commit.Message,
		Author:  s.cfg.Commit.Author,
		Email:   s.cfg.Commit.Email,
	})
	if err != nil {
		report.Status = StatusFailed
		report.Warnings = append(report.Warnings, Warning{Kind: WarnCommit, Detail: err.Error()})
		log.Error("Draft commit failed", logfields.Error(err))
		return
	}
	if hash != "" {
		report.CommitHash = hash
		log.Info("Recorded draft commit", "hash", hash)
	}
}

func (s *Service) recordHistory(ctx context.Context, report *Report) {
	if s.store == nil {
		return
	}

	run := history.RunRecord{
		ID:         report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.StartedAt.Add(report.Duration),
		Status:     string(report.Status),
		Reason:     report.Trigger,
		Changed:    len(report.Changed),
		Resolved:   len(report.BuildSet),
		Built:      report.Built(),
		Failed:     report.Failed(),
		Warnings:   len(report.Warnings),
	}
	roots := make([]history.RootRecord, 0, len(report.Roots))
	for _, rr := range report.Roots {
		roots = append(roots, history.RootRecord{
			RunID:    report.RunID,
			Root:     rr.Root.String(),
			Status:   string(rr.Status),
			Duration: rr.Duration,
			Artifact: rr.Artifact,
			Error:    rr.Err,
		})
	}

	if err := s.store.Record(ctx, run, roots); err != nil {
		report.Warnings = append(report.Warnings, Warning{Kind: WarnHistory, Detail: err.Error()})
		observability.Logger(ctx).Warn("History record failed", logfields.Error(err))
	}
}

func (s *Service) publishEvent(ctx context.Context, report *Report) {
	if s.pub == nil {
		return
	}

	event := events.RunEvent{
		RunID:      report.RunID,
		Trigger:    report.Trigger,
		Status:     string(report.Status),
		StartedAt:  report.StartedAt,
		DurationMS: report.Duration.Milliseconds(),
		Changed:    len(report.Changed),
		Resolved:   len(report.BuildSet),
		Built:      report.Built(),
		Failed:     report.Failed(),
		Warnings:   len(report.Warnings),
	}
	for _, rr := range report.Roots {
		event.Roots = append(event.Roots, events.RootEvent{
			Root:       rr.Root.String(),
			Status:     string(rr.Status),
			Artifact:   rr.Artifact,
			Error:      rr.Err,
			DurationMS: rr.Duration.Milliseconds(),
		})
	}

	if err := s.pub.Publish(event); err != nil {
		report.Warnings = append(report.Warnings, Warning{Kind: WarnEvents, Detail: err.Error()})
		observability.Logger(ctx).Warn("Event publish failed", logfields.Error(err))
	}
}
