package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/resolve"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
)

func newParser(t *testing.T) (*kong.Kong, *CLI) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("texbuilder"),
		kong.Vars{"version": "test"},
	)
	require.NoError(t, err)
	return parser, cli
}

func TestParseCommands(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"build"}, "build"},
		{[]string{"build", "chapters/ch1.tex"}, "build <changed>"},
		{[]string{"resolve", "a.tex", "b.tex"}, "resolve <changed>"},
		{[]string{"watch"}, "watch"},
		{[]string{"history"}, "history"},
		{[]string{"init"}, "init"},
	}
	for _, tc := range cases {
		parser, _ := newParser(t)
		ctx, err := parser.Parse(tc.args)
		require.NoError(t, err, tc.args)
		assert.Equal(t, tc.want, ctx.Command())
	}
}

func TestParseFlags(t *testing.T) {
	parser, cli := newParser(t)
	_, err := parser.Parse([]string{
		"-c", "project.yaml", "-v",
		"build", "chapters/ch1.tex", "--all", "--dry-run",
		"-x", "scratch.tex", "-x", "notes/old.tex",
	})
	require.NoError(t, err)

	assert.Equal(t, "project.yaml", cli.Config)
	assert.True(t, cli.Verbose)
	assert.Equal(t, []string{"chapters/ch1.tex"}, cli.Build.Changed)
	assert.True(t, cli.Build.All)
	assert.True(t, cli.Build.DryRun)
	assert.Equal(t, []string{"scratch.tex", "notes/old.tex"}, cli.Build.Exclude)
}

func TestSplitPaths(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"words", []string{"a.tex", "b.tex"}, []string{"a.tex", "b.tex"}},
		{"commas", []string{"a.tex,b.tex"}, []string{"a.tex", "b.tex"}},
		{"mixed and padded", []string{"a.tex, b.tex", "c.tex"}, []string{"a.tex", "b.tex", "c.tex"}},
		{"trailing comma", []string{"a.tex,"}, []string{"a.tex"}},
		{"empty", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, splitPaths(tc.in))
		})
	}
}

func TestParseResolveExplain(t *testing.T) {
	parser, cli := newParser(t)
	_, err := parser.Parse([]string{"resolve", "common/preamble.tex", "--explain"})
	require.NoError(t, err)

	assert.Equal(t, []string{"common/preamble.tex"}, cli.Resolve.Changed)
	assert.True(t, cli.Resolve.Explain)
}

func TestParseDefaults(t *testing.T) {
	parser, cli := newParser(t)
	_, err := parser.Parse([]string{"history"})
	require.NoError(t, err)

	assert.Equal(t, "texbuilder.yaml", cli.Config)
	assert.Equal(t, 10, cli.History.Limit)
}

func TestParseRejectsUnknownCommand(t *testing.T) {
	parser, _ := newParser(t)
	_, err := parser.Parse([]string{"frobnicate"})
	require.Error(t, err)
}

func TestPrintReport(t *testing.T) {
	report := &build.Report{
		RunID:    "run-1",
		Trigger:  "cli",
		Duration: 1234 * time.Millisecond,
		Status:   build.StatusFailed,
		Changed:  []texpath.Canon{"common/preamble"},
		Excluded: []texpath.Canon{"scratch"},
		Roots: []build.RootReport{
			{
				Root:     "thesis",
				Status:   build.StatusSuccess,
				Artifact: "drafts/thesis_20260101120000.pdf",
				Duration: 800 * time.Millisecond,
			},
			{
				Root:   "report",
				Status: build.StatusFailed,
				Err:    "compile failed: exit status 1",
			},
		},
		Warnings: []build.Warning{
			{Kind: build.WarnDanglingReference, Subject: "common/missing", Detail: "referenced from common/preamble"},
		},
		WordCounts: map[texpath.Canon]int{"thesis": 12345},
		CommitHash: "a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0",
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Run run-1 (cli): failed in 1.234s")
	assert.Contains(t, out, "Changed:  common/preamble")
	assert.Contains(t, out, "Excluded: scratch")
	assert.Contains(t, out, "built thesis -> drafts/thesis_20260101120000.pdf (800ms)")
	assert.Contains(t, out, "FAILED report: compile failed: exit status 1")
	assert.Contains(t, out, "warning [dangling_reference] common/missing: referenced from common/preamble")
	assert.Contains(t, out, "words thesis: 12345")
	assert.Contains(t, out, "committed a1b2c3d4")
}

func TestPrintResolution(t *testing.T) {
	report := &build.Report{
		Changed:  []texpath.Canon{"chapters/ch1"},
		Affected: []texpath.Canon{"thesis"},
		BuildSet: []texpath.Canon{"thesis"},
		Traces: []resolve.Trace{
			{Root: "thesis", Path: []texpath.Canon{"chapters/ch1", "thesis"}},
		},
	}

	var buf bytes.Buffer
	printResolution(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Changed:   chapters/ch1")
	assert.Contains(t, out, "Affected:  thesis")
	assert.Contains(t, out, "Build set: thesis")
	assert.Contains(t, out, "  thesis via chapters/ch1 -> thesis")
	assert.NotContains(t, out, "Unknown:")
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "a1b2c3d4", shortHash("a1b2c3d4e5f6"))
	assert.Equal(t, "abc", shortHash("abc"))
}
