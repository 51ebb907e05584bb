package compile

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/texpath"
)

// Job describes the compilation of one top-level document.
type Job struct {
	Root       texpath.Canon
	Source     string // corpus-relative source path
	CorpusDir  string // working directory for every pass, so relative includes resolve
	StagingDir string // aux and output directory, one per root
	Compiler   string
	Biber      bool
}

// OutputFile returns where the compiled document lands in staging.
func (j Job) OutputFile() string {
	return filepath.Join(j.StagingDir, j.Root.Base()+".pdf")
}

// Toolchain runs individual passes of the external typesetting tools.
// This allows swapping the real binaries (BinaryToolchain) for a no-op
// or a recording fake without changing run orchestration.
type Toolchain interface {
	Compile(ctx context.Context, job Job) error
	Bibliography(ctx context.Context, job Job) error
}

// BinaryToolchain shells out to the configured compiler and to biber.
type BinaryToolchain struct{}

func (BinaryToolchain) Compile(ctx context.Context, job Job) error {
	bin, err := exec.LookPath(job.Compiler)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCompilerNotFound, job.Compiler)
	}
	args := []string{
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-output-directory=" + job.StagingDir,
		job.Source,
	}
	return runPass(ctx, bin, args, job.CorpusDir)
}

func (BinaryToolchain) Bibliography(ctx context.Context, job Job) error {
	bin, err := exec.LookPath("biber")
	if err != nil {
		return fmt.Errorf("%w", ErrBiberNotFound)
	}
	// biber works on the control file the compiler dropped in staging.
	args := []string{filepath.Join(job.StagingDir, job.Root.Base())}
	return runPass(ctx, bin, args, job.CorpusDir)
}

// maxOutputTail bounds how much tool output rides along on a failure.
// Compiler logs are huge and the part that matters is the end.
const maxOutputTail = 4096

func runPass(ctx context.Context, bin string, args []string, dir string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s %s: %v\n%s",
			ErrPassFailed, filepath.Base(bin), strings.Join(args, " "), err, tail(out.Bytes()))
	}
	return nil
}

func tail(b []byte) []byte {
	if len(b) <= maxOutputTail {
		return b
	}
	return b[len(b)-maxOutputTail:]
}

// NoopToolchain skips every pass; useful in tests or when only the
// resolution outcome matters.
type NoopToolchain struct{}

func (NoopToolchain) Compile(_ context.Context, job Job) error {
	slog.Debug("NoopToolchain skipping compile pass", "root", job.Root.String())
	return nil
}

func (NoopToolchain) Bibliography(_ context.Context, job Job) error {
	slog.Debug("NoopToolchain skipping bibliography pass", "root", job.Root.String())
	return nil
}
