// Package tokenizer segments DNM ranges into sentences and word tokens.
//
// Sequences are computed on demand from the range alone, so they are
// restartable and safe to iterate from several goroutines at once.
package tokenizer

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docnarrative/internal/dnm"
	"github.com/dgallion1/docnarrative/internal/textnorm"
)

// Kind classifies a token.
type Kind uint8

const (
	KindWord Kind = iota
	KindPunctuation
	KindMathPlaceholder
	// KindOther marks an atomic span clipped by the sentence it was found in.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindPunctuation:
		return "punctuation"
	case KindMathPlaceholder:
		return "math-placeholder"
	}
	return "other"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Token is a classified range. Its text is not stored.
type Token struct {
	dnm.Range
	Kind       Kind
	IsStopword bool
}

// Text returns the token's normalized text.
func (t Token) Text() string { return t.PlainText() }

// Config controls segmentation.
type Config struct {
	// Abbreviations whose final period never ends a sentence, e.g. "Fig.".
	Abbreviations []string `toml:"abbreviations" json:"abbreviations"`
	// KeepTogether lists punctuation that does not split a word when it sits
	// between two letters or digits.
	KeepTogether string `toml:"keep_together" json:"keep_together"`
}

// DefaultConfig returns abbreviations common in scientific prose.
func DefaultConfig() Config {
	return Config{
		Abbreviations: []string{
			"Fig.", "Figs.", "Eq.", "Eqs.", "e.g.", "i.e.", "et al.", "cf.", "resp.",
			"Ref.", "Refs.", "Sec.", "Thm.", "Prop.", "Def.", "vs.", "Dr.", "Mr.",
			"Mrs.", "Prof.", "Ch.", "No.", "approx.",
		},
		KeepTogether: "-'’",
	}
}

// Tokenizer is immutable after New.
type Tokenizer struct {
	abbrevs []string
	keep    string
}

// New prepares a tokenizer. Abbreviations are matched case-insensitively;
// a missing final period is added.
func New(cfg Config) *Tokenizer {
	t := &Tokenizer{keep: cfg.KeepTogether}
	for _, a := range cfg.Abbreviations {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if !strings.HasSuffix(a, ".") {
			a += "."
		}
		t.abbrevs = append(t.abbrevs, a)
	}
	return t
}

func isTerminator(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '’', '”', '»':
		return true
	}
	return false
}

// Sentences yields trimmed, non-empty sentence ranges of r in order.
func (t *Tokenizer) Sentences(r dnm.Range) iter.Seq[dnm.Range] {
	return func(yield func(dnm.Range) bool) {
		d := r.DNM()
		if d == nil || r.IsEmpty() {
			return
		}
		text := d.Text()
		end := r.End()

		emit := func(s, e int) bool {
			sent, _ := d.Range(s, e)
			sent = sent.Trim(textnorm.IsSpace)
			if sent.IsEmpty() {
				return true
			}
			return yield(sent)
		}

		start := r.Start()
		i := start
		for i < end {
			if sp, ok := d.AtomicSpanAt(i); ok {
				i = min(sp.End, end)
				continue
			}
			c, size := utf8.DecodeRuneInString(text[i:end])
			if !isTerminator(c) {
				i += size
				continue
			}

			// Collapse the terminator run, then absorb closing quotes and brackets.
			j := i + size
			j = scan(d, text, j, end, isTerminator)
			single := c == '.' && j == i+size
			j = scan(d, text, j, end, isCloser)

			if t.isBoundary(text, r.Start(), i, j, end, single) {
				if !emit(start, j) {
					return
				}
				start = j
			}
			i = j
		}
		if start < end {
			emit(start, end)
		}
	}
}

// scan advances j over runes matching pred, stopping at atomic spans.
func scan(d *dnm.DNM, text string, j, end int, pred func(rune) bool) int {
	for j < end {
		if _, ok := d.AtomicSpanAt(j); ok {
			break
		}
		c, size := utf8.DecodeRuneInString(text[j:end])
		if !pred(c) {
			break
		}
		j += size
	}
	return j
}

// isBoundary decides whether the terminator run text[term:next) ends a sentence.
// A lowercase letter right after the run continues the sentence, as does a
// digit when a digit precedes the run (3.14).
func (t *Tokenizer) isBoundary(text string, floor, term, next, end int, single bool) bool {
	if next < end {
		c, _ := utf8.DecodeRuneInString(text[next:end])
		if unicode.IsLower(c) {
			return false
		}
		if unicode.IsDigit(c) && term > floor {
			prev, _ := utf8.DecodeLastRuneInString(text[floor:term])
			if unicode.IsDigit(prev) {
				return false
			}
		}
	}
	if single && t.endsAbbreviation(text, floor, term+1) {
		return false
	}
	return true
}

// endsAbbreviation reports whether text[:dot] ends with a configured
// abbreviation that starts on a word boundary at or after floor.
func (t *Tokenizer) endsAbbreviation(text string, floor, dot int) bool {
	for _, a := range t.abbrevs {
		k := dot - len(a)
		if k < floor || !strings.EqualFold(text[k:dot], a) {
			continue
		}
		if k == floor {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(text[:k])
		if !textnorm.IsAlnum(prev) {
			return true
		}
	}
	return false
}

// Words yields the tokens of s. Whitespace separates tokens and is never part
// of one; every other non-alphanumeric rune is its own punctuation token.
func (t *Tokenizer) Words(s dnm.Range) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		d := s.DNM()
		if d == nil || s.IsEmpty() {
			return
		}
		text := d.Text()
		end := s.End()
		tok := func(a, b int, kind Kind) bool {
			r, _ := d.Range(a, b)
			return yield(Token{Range: r, Kind: kind})
		}

		i := s.Start()
		for i < end {
			if sp, ok := d.AtomicSpanAt(i); ok {
				a, b := max(sp.Start, s.Start()), min(sp.End, end)
				kind := KindMathPlaceholder
				if a != sp.Start || b != sp.End {
					kind = KindOther
				}
				if !tok(a, b, kind) {
					return
				}
				i = b
				continue
			}

			c, size := utf8.DecodeRuneInString(text[i:end])
			switch {
			case textnorm.IsSpace(c):
				i += size
			case isWordRune(c):
				j := t.wordEnd(d, text, i+size, end)
				if !tok(i, j, KindWord) {
					return
				}
				i = j
			default:
				if !tok(i, i+size, KindPunctuation) {
					return
				}
				i += size
			}
		}
	}
}

// isWordRune reports whether r belongs in a word. Combining marks count, so
// decomposed letters stay whole.
func isWordRune(r rune) bool {
	return textnorm.IsAlnum(r) || unicode.In(r, unicode.Mn, unicode.Mc)
}

// wordEnd extends a letter/digit run starting before j, crossing single
// keep-together runes that have alphanumerics on both sides.
func (t *Tokenizer) wordEnd(d *dnm.DNM, text string, j, end int) int {
	for j < end {
		if _, ok := d.AtomicSpanAt(j); ok {
			return j
		}
		c, size := utf8.DecodeRuneInString(text[j:end])
		if isWordRune(c) {
			j += size
			continue
		}
		if !strings.ContainsRune(t.keep, c) || j+size >= end {
			return j
		}
		if _, ok := d.AtomicSpanAt(j + size); ok {
			return j
		}
		next, _ := utf8.DecodeRuneInString(text[j+size : end])
		if !textnorm.IsAlnum(next) {
			return j
		}
		j += size
	}
	return j
}

// Tokens yields the words of every sentence of r.
func (t *Tokenizer) Tokens(r dnm.Range) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for sent := range t.Sentences(r) {
			for tok := range t.Words(sent) {
				if !yield(tok) {
					return
				}
			}
		}
	}
}
