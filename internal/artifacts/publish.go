package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// stampProbeLimit bounds how far Publish advances a colliding timestamp
// before giving up.
const stampProbeLimit = 60

// Publish copies a freshly compiled output into the output directory
// under its timestamped artifact name. The copy lands under a temporary
// name first and is renamed into place, so a crash mid-copy never leaves
// a partial file matching the retention pattern. When the target name is
// already taken the timestamp advances by one second until free.
func (p Policy) Publish(src, base string, ts time.Time) (Artifact, error) {
	if err := os.MkdirAll(p.Dir, 0o750); err != nil {
		return Artifact{}, fmt.Errorf("create output directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return Artifact{}, fmt.Errorf("open compile output: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(p.Dir, ".stage-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("stage artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Artifact{}, fmt.Errorf("copy artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Artifact{}, fmt.Errorf("flush artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return Artifact{}, fmt.Errorf("chmod artifact: %w", err)
	}

	ts = ts.Truncate(time.Second)
	var dest string
	found := false
	for i := 0; i < stampProbeLimit; i++ {
		dest = filepath.Join(p.Dir, Name(base, ts, p.Extension))
		if _, statErr := os.Stat(dest); os.IsNotExist(statErr) {
			found = true
			break
		}
		ts = ts.Add(time.Second)
	}
	if !found {
		os.Remove(tmpName)
		return Artifact{}, fmt.Errorf("no free artifact name for %s under %s", base, p.Dir)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return Artifact{}, fmt.Errorf("place artifact: %w", err)
	}

	return Artifact{
		Path:  dest,
		Name:  filepath.Base(dest),
		Base:  base,
		Stamp: ts,
	}, nil
}
