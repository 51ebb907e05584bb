package wordcount

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

var (
	// ErrMacroNotFound means the target file carries no counter macro
	// definition to rewrite.
	ErrMacroNotFound = errors.New("counter macro definition not found")

	// ErrBadMacroName rejects macro names outside TeX control sequence
	// letters.
	ErrBadMacroName = errors.New("invalid counter macro name")
)

var macroNameRe = regexp.MustCompile(`^[a-zA-Z@]+$`)

// ValidMacroName reports whether name is a usable counter macro name,
// written without the leading backslash.
func ValidMacroName(name string) bool {
	return macroNameRe.MatchString(name)
}

// counterPattern matches \newcommand{\<macro>}{<digits>} and the
// \renewcommand form, capturing everything around the digits.
func counterPattern(macro string) (*regexp.Regexp, error) {
	if !macroNameRe.MatchString(macro) {
		return nil, fmt.Errorf("%w: %q", ErrBadMacroName, macro)
	}
	expr := `(\\(?:re)?newcommand\s*\{\s*\\` + regexp.QuoteMeta(macro) + `\s*\}\s*\{)\d+(\})`
	return regexp.Compile(expr)
}

// UpdateCounter rewrites the numeric argument of every counter macro
// definition in the file at path. It reports whether the file content
// actually changed; a definition already holding count is left alone.
// ErrMacroNotFound is returned when no definition exists at all.
func UpdateCounter(path, macro string, count int) (bool, error) {
	re, err := counterPattern(macro)
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read word count target: %w", err)
	}
	if !re.Match(data) {
		return false, fmt.Errorf("%w: \\%s in %s", ErrMacroNotFound, macro, path)
	}

	out := re.ReplaceAll(data, []byte("${1}"+strconv.Itoa(count)+"${2}"))
	if bytes.Equal(out, data) {
		return false, nil
	}

	fi, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat word count target: %w", err)
	}
	if err := os.WriteFile(path, out, fi.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write word count target: %w", err)
	}
	return true, nil
}
