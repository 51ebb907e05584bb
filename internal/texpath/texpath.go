package texpath

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Canon is the canonical identity of a document inside the corpus: a
// slash-separated path relative to the corpus root with the source
// extension stripped. Every subsystem that names documents (graph nodes,
// change sets, exclusion lists, word-count targets) converts spellings to
// Canon first, so "./chapters/ch1.tex" and "chapters/ch1" always denote
// the same document.
type Canon string

// ErrNotCanonical marks spellings that cannot denote a document inside
// the corpus, such as empty strings or paths that climb above the root.
var ErrNotCanonical = errors.New("path cannot denote a corpus document")

// sourceExt is the only extension stripped during canonicalization.
// Other extensions are part of the identity.
const sourceExt = ".tex"

// Normalize maps a raw spelling (include argument, CLI token, walk
// result) to its canonical identity. It is lenient: spellings with no
// canonical form come back as the zero Canon, which no corpus document
// ever carries.
func Normalize(raw string) Canon {
	c, err := NormalizeWithError(raw)
	if err != nil {
		return ""
	}
	return c
}

// NormalizeWithError is the strict variant for configuration surfaces,
// where a bad entry must fail validation instead of being dropped.
func NormalizeWithError(raw string) (Canon, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "\\", "/")
	if s == "" {
		return "", fmt.Errorf("%w: empty path", ErrNotCanonical)
	}
	s = path.Clean(s)
	s = strings.TrimPrefix(s, "/")
	if s == "" || s == "." {
		return "", fmt.Errorf("%w: empty path", ErrNotCanonical)
	}
	if s == ".." || strings.HasPrefix(s, "../") {
		return "", fmt.Errorf("%w: %q escapes the corpus root", ErrNotCanonical, raw)
	}
	if ext := path.Ext(s); strings.EqualFold(ext, sourceExt) {
		s = s[:len(s)-len(ext)]
	}
	if s == "" || strings.HasSuffix(s, "/") {
		return "", fmt.Errorf("%w: %q has no document name", ErrNotCanonical, raw)
	}
	return Canon(s), nil
}

// String returns the canonical form.
func (c Canon) String() string { return string(c) }

// IsZero reports whether c is the zero identity.
func (c Canon) IsZero() bool { return c == "" }

// Base returns the final path segment. Artifact names are derived from
// it, so two roots sharing a basename share an artifact family.
func (c Canon) Base() string { return path.Base(string(c)) }

// SourcePath returns the corpus-relative source file path for the
// document, i.e. the identity with the source extension restored.
func (c Canon) SourcePath() string { return string(c) + sourceExt }
