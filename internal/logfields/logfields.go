package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTrigger    = "trigger"
	KeyStage      = "stage"
	KeyRoot       = "root"
	KeyDocument   = "document"
	KeyPath       = "path"
	KeyArtifact   = "artifact"
	KeyCompiler   = "compiler"
	KeyTarget     = "target"
	KeySubject    = "subject"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Trigger(t string) slog.Attr      { return slog.String(KeyTrigger, t) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Root(r string) slog.Attr         { return slog.String(KeyRoot, r) }
func Document(d string) slog.Attr     { return slog.String(KeyDocument, d) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Artifact(a string) slog.Attr     { return slog.String(KeyArtifact, a) }
func Compiler(c string) slog.Attr     { return slog.String(KeyCompiler, c) }
func Target(t string) slog.Attr       { return slog.String(KeyTarget, t) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
