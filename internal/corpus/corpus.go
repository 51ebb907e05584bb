package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/scan"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
)

// File is one scanned corpus document.
type File struct {
	Identity texpath.Canon
	RelPath  string // slash-separated, extension kept
	AbsPath  string
	Scan     scan.Result
}

// Scanner walks a corpus root and scans every document source found.
// Hidden files and directories are skipped, which keeps .git and editor
// droppings out of the graph.
type Scanner struct {
	root    string
	workers int
	cache   *scan.Cache
}

const defaultWorkers = 4

// NewScanner creates a scanner for the corpus rooted at root.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root, workers: defaultWorkers}
}

// WithWorkers bounds how many files are read and scanned concurrently.
func (s *Scanner) WithWorkers(n int) *Scanner {
	if n > 0 {
		s.workers = n
	}
	return s
}

// WithCache attaches a scan cache for reuse across runs.
func (s *Scanner) WithCache(c *scan.Cache) *Scanner {
	s.cache = c
	return s
}

// Scan walks the corpus and returns one File per readable document
// source, in walk order. Unreadable files are logged and skipped so a
// file vanishing mid-run (editors love swap games) cannot kill a build.
func (s *Scanner) Scan(ctx context.Context) ([]File, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus root: %w", err)
	}

	var rels []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name := d.Name()
		if d.IsDir() {
			if p != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !isSourceFile(name) {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus root %s: %w", s.root, err)
	}

	results := runOrdered(rels, s.workers, func(rel string) (File, error) {
		if err := ctx.Err(); err != nil {
			return File{}, err
		}
		return s.scanOne(root, rel)
	})

	files := make([]File, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Skipping unreadable document", logfields.Path(rels[i]), logfields.Error(r.Err))
			continue
		}
		files = append(files, r.Value)
	}
	return files, nil
}

func (s *Scanner) scanOne(root, rel string) (File, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	f := File{
		Identity: texpath.Normalize(rel),
		RelPath:  rel,
		AbsPath:  abs,
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return File{}, err
	}
	key := scan.CacheKey{Path: abs, Size: fi.Size(), MTime: fi.ModTime().UnixNano()}
	if res, ok := s.cache.Get(key); ok {
		f.Scan = res
		return f, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return File{}, err
	}
	f.Scan = scan.Bytes(data)
	s.cache.Put(key, f.Scan)
	return f, nil
}

func isSourceFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".tex")
}
