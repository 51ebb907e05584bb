package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// Watcher follows the corpus tree with fsnotify and emits debounced
// batches of changed source paths, relative to the corpus root.
// Directories created while watching are picked up automatically.
type Watcher struct {
	corpusDir string
	debounce  time.Duration
	ignore    []string

	fs      *fsnotify.Watcher
	batches chan []string

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	closed  bool
}

// NewWatcher creates a watcher for the corpus rooted at corpusDir. The
// directory tree is registered when Run starts, not here.
func NewWatcher(corpusDir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		corpusDir: corpusDir,
		debounce:  400 * time.Millisecond,
		fs:        fsw,
		batches:   make(chan []string, 1),
		pending:   make(map[string]struct{}),
	}, nil
}

// WithDebounce sets the quiet period collapsing bursts of events into a
// single batch.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// WithIgnoreDirs excludes directory trees from watching. Paths may be
// absolute or relative to the corpus root. The artifact directory must
// be listed here, or publishing drafts would retrigger the watcher.
func (w *Watcher) WithIgnoreDirs(dirs ...string) *Watcher {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if !filepath.IsAbs(d) {
			d = filepath.Join(w.corpusDir, d)
		}
		w.ignore = append(w.ignore, filepath.Clean(d))
	}
	return w
}

// Batches delivers debounced change sets. The channel is closed when Run
// returns.
func (w *Watcher) Batches() <-chan []string { return w.batches }

// Run registers the corpus tree and processes events until ctx is
// cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.mu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		close(w.batches)
	}()

	if err := w.addDirsRecursive(w.corpusDir); err != nil {
		return err
	}
	slog.Info("Watching corpus", logfields.Path(w.corpusDir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Close releases the underlying fsnotify watcher, unblocking Run.
func (w *Watcher) Close() error { return w.fs.Close() }

// handleEvent records a relevant source change and arms the debounce
// timer. New directories are registered before their contents can emit.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if w.ignored(ev.Name) || shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(ev.Name)
			return
		}
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	rel, err := filepath.Rel(w.corpusDir, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	if !strings.EqualFold(filepath.Ext(rel), ".tex") {
		return
	}
	slog.Debug("File change detected", logfields.Path(rel), slog.String("op", ev.Op.String()))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[filepath.ToSlash(rel)] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	} else {
		w.timer.Reset(w.debounce)
	}
}

// flush hands the pending set to the consumer. If the consumer has not
// drained the previous batch yet, the set is kept and the timer re-armed
// so no change is lost.
func (w *Watcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || len(w.pending) == 0 {
		return
	}
	batch := make([]string, 0, len(w.pending))
	for p := range w.pending {
		batch = append(batch, p)
	}
	sort.Strings(batch)
	select {
	case w.batches <- batch:
		clear(w.pending)
	default:
		w.timer.Reset(w.debounce)
	}
}

func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		// Hidden trees (.git in particular) stay unwatched.
		if w.ignored(path) || (path != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	for _, dir := range w.ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// shouldIgnoreEvent returns true for filesystem events that should not
// trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// Ignore hidden files
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Ignore editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return false
}
