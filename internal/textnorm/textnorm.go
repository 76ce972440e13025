// Package textnorm holds the character-level normalization rules shared by
// the DNM builder and the stopword filter, so that a word normalized while
// building a document compares equal to the same word in a stopword list.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// IsSpace reports whether r is collapsible whitespace.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r)
}

// IsAlnum reports whether r is a letter or a digit.
func IsAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Transliterate maps r to an ASCII-compatible spelling. ASCII passes through,
// nonspacing marks map to "" and runes without a known transliteration are
// returned unchanged.
func Transliterate(r rune) string {
	if r < utf8.RuneSelf {
		return string(r)
	}
	if unicode.Is(unicode.Mn, r) {
		return ""
	}
	if s := unidecode.Unidecode(string(r)); s != "" {
		return s
	}
	return string(r)
}

// TransliterateString applies Transliterate to every rune of s after
// composing it to NFC.
func TransliterateString(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteString(Transliterate(r))
	}
	return b.String()
}

// Fold returns the matching key for s: NFC, transliterated, case folded and
// trimmed. cases.Caser is stateful, so one is created per call.
func Fold(s string) string {
	return strings.TrimSpace(cases.Fold().String(TransliterateString(s)))
}

// CollapseSpace replaces every whitespace run with a single space and trims
// both ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
