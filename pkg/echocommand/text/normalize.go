// Package text turns free-form transcripts and instruction strings into a
// comparable canonical form.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var apostrophes = strings.NewReplacer(
	"’", "'", // right single quotation mark
	"‘", "'", // left single quotation mark
	"ʼ", "'", // modifier letter apostrophe
	"′", "'", // prime
)

// Normalize folds compatibility forms (fullwidth, ligatures, styled math
// letters) to their plain letters, expands contractions, lowercases, drops
// everything that is not a letter, number, underscore or space, and collapses
// whitespace.
//
//	Normalize("Don't look back!") == "do not look back"
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = apostrophes.Replace(s)
	s = ExpandContractions(s)
	s = cases.Lower(language.Und).String(s)
	// Stripping can bring conjoining runes next to each other, so compose again.
	s = norm.NFKC.String(strings.Map(keepWordRune, s))
	return strings.Join(strings.Fields(s), " ")
}

func keepWordRune(r rune) rune {
	// Uppercase letters without a lowercase form are dropped.
	if unicode.IsUpper(r) {
		if r = unicode.ToLower(r); unicode.IsUpper(r) {
			return -1
		}
	}
	if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
		return r
	}
	return -1
}
