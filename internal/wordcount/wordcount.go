package wordcount

import (
	"bytes"
	"regexp"

	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/texbuilder/internal/scan"
)

// commandRe matches a control sequence, including starred forms.
var commandRe = regexp.MustCompile(`\\[a-zA-Z@]+\*?`)

// Count approximates the prose word count of one document source:
// comments removed, control sequences dropped, brace and bracket
// structure flattened, remainder split on whitespace. Input is NFC
// normalized first so composed and decomposed spellings of the same
// text count alike.
func Count(src []byte) int {
	src = norm.NFC.Bytes(src)
	words := 0
	for len(src) > 0 {
		var line []byte
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			line, src = src[:i], src[i+1:]
		} else {
			line, src = src, nil
		}
		line = scan.StripComment(line)
		line = commandRe.ReplaceAll(line, []byte(" "))
		line = bytes.Map(flattenStructure, line)
		words += len(bytes.Fields(line))
	}
	return words
}

func flattenStructure(r rune) rune {
	switch r {
	case '{', '}', '[', ']', '~':
		return ' '
	}
	return r
}
