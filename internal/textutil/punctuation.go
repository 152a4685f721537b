package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// closing punctuation never takes a leading space.
var closingPunct = map[rune]bool{
	'.': true, ',': true, '!': true, '?': true, ';': true, ':': true,
	')': true, ']': true, '}': true, '»': true, '…': true,
	'،': true, '؛': true, '؟': true,
}

// sentence punctuation is followed by exactly one space when a word follows.
var spacedPunct = map[rune]bool{
	',': true, '!': true, '?': true, ';': true,
	'،': true, '؛': true, '؟': true,
}

var persianLetters = strings.NewReplacer(
	"ك", "ک",
	"ي", "ی",
	"ى", "ی",
)

// TidyPunctuation collapses whitespace runs, removes spaces before closing
// punctuation, and inserts a single space after punctuation that runs into the
// next word. Periods and colons only gain a space before non-ASCII or
// upper-case letters so decimals, times, and host names survive.
func TidyPunctuation(text string) string {
	runes := []rune(collapseSpaces(text))
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ' ' && i+1 < len(runes) && closingPunct[runes[i+1]] {
			continue
		}
		b.WriteRune(r)
		if i+1 >= len(runes) {
			continue
		}
		next := runes[i+1]
		if !unicode.IsLetter(next) {
			continue
		}
		switch {
		case spacedPunct[r]:
			b.WriteByte(' ')
		case (r == '.' || r == ':') && (next > unicode.MaxASCII || unicode.IsUpper(next)):
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizePersian applies NFC normalization and maps Arabic kaf/yeh forms to
// their Persian equivalents.
func NormalizePersian(text string) string {
	return persianLetters.Replace(norm.NFC.String(text))
}

func collapseSpaces(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
