package ocr

import (
	"regexp"
	"strings"
)

// confusions maps characters tesseract commonly returns in place of digits
// on id cards.
var confusions = map[rune]rune{
	'O': '0', 'o': '0', 'D': '0', 'Q': '0',
	'I': '1', 'l': '1', 'i': '1', '|': '1',
	'S': '5', 's': '5',
	'B': '8',
	'Z': '2', 'z': '2',
	'G': '6',
}

var labelRE = regexp.MustCompile(`(?i)\bn[i1l]k\b\s*[:;.]?\s*`)

// repairToken turns a token into digits when it is mostly digits with a few
// look-alike letters. Tokens that read as words return "".
func repairToken(tok string) string {
	digits := 0
	var b strings.Builder
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
			digits++
			b.WriteRune(r)
		case confusions[r] != 0:
			b.WriteRune(confusions[r])
		default:
			return ""
		}
	}
	if digits*2 < b.Len() {
		return ""
	}
	return b.String()
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', ':', ';', ',', '.', '-', '/', '(', ')':
		return true
	}
	return false
}

// ParseNIKCandidates finds every 16-digit sequence in OCR text after
// repairing look-alike letters. Numbers split by the recogniser into several
// tokens are joined back together. Runs longer than 16 digits only yield
// windows that look like a real NIK.
func ParseNIKCandidates(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(c string) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	var run strings.Builder
	flush := func() {
		d := run.String()
		run.Reset()
		if len(d) == NIKLength {
			add(d)
			return
		}
		for i := 0; i+NIKLength <= len(d); i++ {
			if c := d[i : i+NIKLength]; isPlausibleNIK(c) {
				add(c)
			}
		}
	}
	for _, tok := range strings.FieldsFunc(text, isSeparator) {
		fixed := repairToken(tok)
		if fixed == "" {
			flush()
			continue
		}
		run.WriteString(fixed)
	}
	flush()
	return out
}

// labelledNIK returns the candidate printed right after a "NIK" label, if any.
func labelledNIK(text string) string {
	loc := labelRE.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if len(rest) > 40 {
		rest = rest[:40]
	}
	if c := ParseNIKCandidates(rest); len(c) > 0 {
		return c[0]
	}
	return ""
}
