package compile

import "errors"

var (
	// ErrCompilerNotFound means the configured compiler is not on PATH.
	ErrCompilerNotFound = errors.New("compiler executable not found")

	// ErrBiberNotFound means the bibliography pass is enabled but biber
	// is not on PATH.
	ErrBiberNotFound = errors.New("biber executable not found")

	// ErrPassFailed wraps a nonzero exit from any pass, with the tail of
	// the tool output attached.
	ErrPassFailed = errors.New("compile pass failed")
)
