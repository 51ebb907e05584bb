package scan

import (
	"bytes"
	"regexp"
)

// Result is what a single pass over one document source yields: the
// include arguments exactly as written, in order of appearance, and
// whether the document declares itself a top-level document.
//
// Results are cached and shared between runs, so callers must treat
// References as read-only.
type Result struct {
	References []string
	Root       bool
}

var (
	// includeRe matches \input{...} and \include{...} directives. The
	// argument never spans lines, so line-at-a-time matching is safe.
	includeRe = regexp.MustCompile(`\\(?:input|include)\s*\{([^{}]*)\}`)

	// rootRe detects the top-level document declaration.
	rootRe = regexp.MustCompile(`\\documentclass\b`)
)

// Bytes scans one document source held in memory.
func Bytes(src []byte) Result {
	var res Result
	for len(src) > 0 {
		var line []byte
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			line, src = src[:i], src[i+1:]
		} else {
			line, src = src, nil
		}
		line = StripComment(line)
		if !res.Root && rootRe.Match(line) {
			res.Root = true
		}
		for _, m := range includeRe.FindAllSubmatch(line, -1) {
			res.References = append(res.References, string(m[1]))
		}
	}
	return res
}

// StripComment returns line with the comment tail removed. A percent
// sign is literal when preceded by an odd run of backslashes.
func StripComment(line []byte) []byte {
	for i := 0; i < len(line); i++ {
		if line[i] != '%' {
			continue
		}
		bs := 0
		for j := i - 1; j >= 0 && line[j] == '\\'; j-- {
			bs++
		}
		if bs%2 == 0 {
			return line[:i]
		}
	}
	return line
}
