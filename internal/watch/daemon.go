package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/events"
	"git.home.luguber.info/inful/texbuilder/internal/history"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/scan"
	"git.home.luguber.info/inful/texbuilder/internal/workspace"
)

const (
	scanCacheSize   = 4096
	shutdownTimeout = 5 * time.Second
)

// Daemon keeps the corpus built: a full build on startup, debounced
// incremental rebuilds on source changes, optional scheduled full
// rebuilds, and optional metrics, history and event endpoints. It owns a
// persistent workspace so successive compiles reuse aux files.
type Daemon struct {
	cfg       *config.Config
	corpusDir string

	svc     *build.Service
	ws      *workspace.Manager
	watcher *Watcher
	sched   *Scheduler
	store   *history.Store
	pub     *events.Publisher
	metrics *http.Server

	workers WorkerGroup
	buildMu sync.Mutex
}

// New wires a daemon from cfg. The optional endpoints (metrics, history,
// events) are only set up when configured.
func New(cfg *config.Config) (*Daemon, error) {
	corpusDir, err := filepath.Abs(cfg.Corpus.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus root: %w", err)
	}

	cache, err := scan.NewCache(scanCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create scan cache: %w", err)
	}

	ws := workspace.NewPersistentManager(workBase(cfg), "working")
	if err := ws.Create(); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	d := &Daemon{
		cfg:       cfg,
		corpusDir: corpusDir,
		ws:        ws,
		svc:       build.NewService(cfg).WithScanCache(cache).WithWorkspace(ws),
	}

	if cfg.Watch.MetricsAddr != "" {
		reg := prom.NewRegistry()
		reg.MustRegister(
			promcollect.NewGoCollector(),
			promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}),
		)
		d.svc.WithRecorder(metrics.NewPrometheusRecorder(reg))
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		d.metrics = &http.Server{
			Addr:              cfg.Watch.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		d.store = store
		d.svc.WithHistory(store)
	}

	if cfg.Watch.NATSURL != "" {
		pub, err := events.NewPublisher(cfg.Watch.NATSURL, cfg.Watch.NATSSubject)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("connect event publisher: %w", err)
		}
		d.pub = pub
		d.svc.WithPublisher(pub)
	}

	return d, nil
}

// WithToolchain swaps the toolchain used for builds.
func (d *Daemon) WithToolchain(tc compile.Toolchain) *Daemon {
	d.svc.WithToolchain(tc)
	return d
}

// workBase picks the parent for the persistent workspace. The user cache
// directory keeps aux files out of the corpus so the watcher never sees
// recompile churn.
func workBase(cfg *config.Config) string {
	if cfg.Build.WorkDir != "" {
		return cfg.Build.WorkDir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "texbuilder")
	}
	return filepath.Join(os.TempDir(), "texbuilder")
}

// Run builds once, then rebuilds on changes until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("Starting daemon", logfields.Path(d.corpusDir))

	if d.metrics != nil {
		srv := d.metrics
		d.workers.Go(func() {
			slog.Info("Serving metrics", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		})
	}

	d.runBuild(ctx, build.Request{All: true, Trigger: build.TriggerStartup})

	watcher, err := NewWatcher(d.corpusDir)
	if err != nil {
		_ = d.shutdown()
		return err
	}
	d.watcher = watcher.
		WithDebounce(d.cfg.DebounceDuration()).
		WithIgnoreDirs(d.cfg.Output.Directory, d.ws.GetPath())

	d.workers.Go(func() {
		if werr := d.watcher.Run(ctx); werr != nil {
			slog.Error("Watcher stopped", logfields.Error(werr))
		}
	})

	if d.cfg.Watch.Schedule != "" {
		sched, err := NewScheduler()
		if err != nil {
			_ = d.shutdown()
			return err
		}
		d.sched = sched
		id, err := sched.ScheduleRebuild(d.cfg.Watch.Schedule, func() {
			d.runBuild(ctx, build.Request{All: true, Trigger: build.TriggerSchedule})
		})
		if err != nil {
			_ = d.shutdown()
			return fmt.Errorf("schedule rebuilds: %w", err)
		}
		slog.Info("Scheduled full rebuilds",
			slog.String("job_id", id),
			slog.String("schedule", d.cfg.Watch.Schedule))
		sched.Start()
	}

	for {
		select {
		case <-ctx.Done():
			return d.shutdown()
		case batch, ok := <-d.watcher.Batches():
			if !ok {
				return d.shutdown()
			}
			d.runBuild(ctx, build.Request{Changed: batch, Trigger: build.TriggerWatch})
		}
	}
}

// runBuild serializes builds so watcher batches and scheduled rebuilds
// never compile concurrently in the shared workspace.
func (d *Daemon) runBuild(ctx context.Context, req build.Request) {
	d.buildMu.Lock()
	defer d.buildMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if _, err := d.svc.Run(ctx, req); err != nil {
		slog.Warn("Build run finished with errors",
			logfields.Trigger(req.Trigger), logfields.Error(err))
	}
}

func (d *Daemon) shutdown() error {
	slog.Info("Shutting down daemon")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if d.sched != nil {
		if err := d.sched.Stop(); err != nil {
			slog.Warn("Scheduler shutdown error", logfields.Error(err))
		}
	}
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			slog.Warn("Watcher close error", logfields.Error(err))
		}
	}
	if d.metrics != nil {
		if err := d.metrics.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Metrics server shutdown error", logfields.Error(err))
		}
	}
	err := d.workers.StopAndWait(shutdownCtx)
	d.close()
	if err != nil {
		return fmt.Errorf("wait for workers: %w", err)
	}
	return nil
}

// close releases the optional endpoints. Safe to call more than once.
func (d *Daemon) close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			slog.Warn("History store close error", logfields.Error(err))
		}
		d.store = nil
	}
	if d.pub != nil {
		if err := d.pub.Close(); err != nil {
			slog.Warn("Event publisher close error", logfields.Error(err))
		}
		d.pub = nil
	}
}
