package dnm

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/dgallion1/docnarrative/internal/doctree"
)

// Range is a half-open view [start, end) over a DNM's text. Ranges are small
// values; copy them freely. Equal ranges refer to the same DNM and bounds.
type Range struct {
	d          *DNM
	start, end int
}

// DNM returns the model the range belongs to.
func (r Range) DNM() *DNM { return r.d }

func (r Range) Start() int    { return r.start }
func (r Range) End() int      { return r.end }
func (r Range) Len() int      { return r.end - r.start }
func (r Range) IsEmpty() bool { return r.end == r.start }

// PlainText returns the substring of the normalized text.
func (r Range) PlainText() string {
	if r.d == nil {
		return ""
	}
	return r.d.text[r.start:r.end]
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.start, r.end)
}

// Equal reports whether both ranges cover the same bounds of the same DNM.
func (r Range) Equal(o Range) bool {
	return r.d == o.d && r.start == o.start && r.end == o.end
}

// Subrange returns the range [relStart, relEnd) measured from r.Start().
func (r Range) Subrange(relStart, relEnd int) (Range, error) {
	if relStart < 0 || relEnd < relStart || relEnd > r.Len() {
		return Range{}, &BoundsError{Start: relStart, End: relEnd, Limit: r.Len()}
	}
	return Range{d: r.d, start: r.start + relStart, end: r.start + relEnd}, nil
}

// Trim drops runes matching pred from both ends. An atomic span stops trimming
// at its edge, so a span is never cut.
func (r Range) Trim(pred func(rune) bool) Range {
	if r.d == nil {
		return r
	}
	text := r.d.text
	start, end := r.start, r.end
	for start < end {
		if _, ok := r.d.AtomicSpanAt(start); ok {
			break
		}
		c, size := utf8.DecodeRuneInString(text[start:end])
		if !pred(c) {
			break
		}
		start += size
	}
	for end > start {
		if _, ok := r.d.AtomicSpanAt(end - 1); ok {
			break
		}
		c, size := utf8.DecodeLastRuneInString(text[start:end])
		if !pred(c) {
			break
		}
		end -= size
	}
	return Range{d: r.d, start: start, end: end}
}

// CoveringNodes returns, in document order and without duplicates, the nodes
// whose intervals overlap r. A zero-width interval counts when its position
// lies strictly inside r; for an empty range, when it equals the position.
func (r Range) CoveringNodes() []doctree.NodeRef {
	if r.d == nil {
		return nil
	}
	entries := r.d.entries
	i := sort.Search(len(entries), func(i int) bool { return entries[i].End >= r.start })

	var out []doctree.NodeRef
	seen := make(map[doctree.NodeRef]struct{})
	add := func(ref doctree.NodeRef) {
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}

	for ; i < len(entries); i++ {
		e := entries[i]
		if r.IsEmpty() {
			if e.Start > r.start {
				break
			}
			if e.Start == e.End && e.Start == r.start {
				add(e.Node)
			}
			continue
		}
		if e.Start >= r.end {
			break
		}
		switch {
		case e.Start == e.End:
			if e.Start > r.start && e.Start < r.end {
				add(e.Node)
			}
		case e.Start < r.end && e.End > r.start:
			add(e.Node)
		}
	}
	return out
}
