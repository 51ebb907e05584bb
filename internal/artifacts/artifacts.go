package artifacts

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the artifact timestamp form: second resolution,
// fixed width, so chronological order and lexical order agree within one
// basename.
const TimestampLayout = "20060102150405"

// Artifact is one retained compile output in the output directory.
type Artifact struct {
	Path  string
	Name  string
	Base  string
	Stamp time.Time
}

// Name returns the artifact file name for a root basename at ts.
func Name(base string, ts time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", base, ts.Format(TimestampLayout), ext)
}

// parseName extracts the timestamp from name when it matches the
// artifact pattern for base and ext exactly; anything else in the output
// directory, including artifacts of other roots and foreign files whose
// names merely start with base, reports false.
func parseName(name, base, ext string) (time.Time, bool) {
	prefix := base + "_"
	suffix := "." + ext
	if len(name) != len(prefix)+len(TimestampLayout)+len(suffix) {
		return time.Time{}, false
	}
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return time.Time{}, false
	}
	stamp := name[len(prefix) : len(name)-len(suffix)]
	ts, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
