package reference

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldName reduces a person name to a comparison key: diacritics stripped (so that
// cedilla and comma-below forms of ş and ţ agree), lowercased, hyphens read as spaces
// and whitespace collapsed.
func FoldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.ReplaceAll(folded, "-", " "))
	return strings.Join(strings.Fields(folded), " ")
}
