// Package dnm builds the Document Narrative Model: a normalized, linear text
// view of a document tree together with an index mapping every byte of that
// text back to the tree nodes that produced it.
//
// A DNM is immutable once Build returns and may be read concurrently.
// All offsets are byte offsets into the UTF-8 text and fall on rune boundaries.
package dnm

import (
	"fmt"
	"sort"

	"github.com/dgallion1/docnarrative/internal/doctree"
)

// IntervalKind records which rule produced an interval.
type IntervalKind uint8

const (
	IntervalText IntervalKind = iota
	IntervalMath
	IntervalPlaceholder
	IntervalSkip
)

func (k IntervalKind) String() string {
	switch k {
	case IntervalText:
		return "text"
	case IntervalMath:
		return "math"
	case IntervalPlaceholder:
		return "placeholder"
	case IntervalSkip:
		return "skip"
	}
	return "unknown"
}

// Interval maps [Start, End) of the text to the node that produced it.
type Interval struct {
	Start int
	End   int
	Node  doctree.NodeRef
	Kind  IntervalKind
}

// Span is an atomic span: the tokenizer never places a boundary inside it.
type Span struct {
	Start int
	End   int
	Node  doctree.NodeRef
}

// entry is an Interval plus its source alignment.
type entry struct {
	Interval
	// src[i] is the byte offset in the leaf's original text that produced
	// text byte Start+i. Set for text intervals only.
	src []int32
	// parts subdivide a unicode-approximated math interval by contributing leaf.
	parts []part
}

type part struct {
	start, end int
	node       doctree.NodeRef
	src        []int32
}

// DNM is a normalized document.
type DNM struct {
	tree    *doctree.Tree
	root    doctree.NodeRef
	params  Parameters
	text    string
	entries []entry
	spans   []Span
}

// Text returns the normalized text.
func (d *DNM) Text() string { return d.text }

// Len returns len(Text()).
func (d *DNM) Len() int { return len(d.text) }

// Params returns the parameters the DNM was built with.
func (d *DNM) Params() Parameters { return d.params }

// Tree returns the source tree.
func (d *DNM) Tree() *doctree.Tree { return d.tree }

// Root returns the node the DNM was built from.
func (d *DNM) Root() doctree.NodeRef { return d.root }

// Intervals returns a copy of the offset index in document order.
func (d *DNM) Intervals() []Interval {
	out := make([]Interval, len(d.entries))
	for i := range d.entries {
		out[i] = d.entries[i].Interval
	}
	return out
}

// AtomicSpans returns a copy of the atomic spans in text order.
func (d *DNM) AtomicSpans() []Span {
	out := make([]Span, len(d.spans))
	copy(out, d.spans)
	return out
}

// AtomicSpanAt returns the atomic span containing off, if any.
func (d *DNM) AtomicSpanAt(off int) (Span, bool) {
	i := sort.Search(len(d.spans), func(i int) bool { return d.spans[i].End > off })
	if i < len(d.spans) && d.spans[i].Start <= off {
		return d.spans[i], true
	}
	return Span{}, false
}

// IsAtomicSpan reports whether [start, end) is exactly a registered atomic span.
func (d *DNM) IsAtomicSpan(start, end int) bool {
	s, ok := d.AtomicSpanAt(start)
	return ok && s.Start == start && s.End == end
}

// FullRange covers the whole text.
func (d *DNM) FullRange() Range {
	return Range{d: d, start: 0, end: len(d.text)}
}

// Range returns [start, end) over the text.
func (d *DNM) Range(start, end int) (Range, error) {
	if start < 0 || end < start || end > len(d.text) {
		return Range{}, &BoundsError{Start: start, End: end, Limit: len(d.text)}
	}
	return Range{d: d, start: start, end: end}, nil
}

// SourcePosition maps a text offset to the leaf (or special element) that
// produced it and the byte offset within that leaf's original text. For
// placeholder intervals the element is returned with offset 0.
func (d *DNM) SourcePosition(off int) (doctree.NodeRef, int, error) {
	if off < 0 || off >= len(d.text) {
		return doctree.NodeRef{}, 0, &BoundsError{Start: off, End: off + 1, Limit: len(d.text)}
	}
	i := sort.Search(len(d.entries), func(i int) bool { return d.entries[i].End > off })
	if i == len(d.entries) || d.entries[i].Start > off {
		return doctree.NodeRef{}, 0, fmt.Errorf("offset %d not indexed", off)
	}
	e := &d.entries[i]
	switch {
	case e.src != nil:
		return e.Node, int(e.src[off-e.Start]), nil
	case e.parts != nil:
		for _, p := range e.parts {
			if off >= p.start && off < p.end {
				return p.node, int(p.src[off-p.start]), nil
			}
		}
	}
	return e.Node, 0, nil
}

// Check verifies the index invariants: intervals are ordered, contiguous,
// non-overlapping and cover [0, Len()); atomic spans lie on interval bounds.
func (d *DNM) Check() error {
	cursor := 0
	for i, e := range d.entries {
		if e.Start != cursor {
			return fmt.Errorf("interval %d starts at %d, expected %d", i, e.Start, cursor)
		}
		if e.End < e.Start {
			return fmt.Errorf("interval %d is inverted [%d,%d)", i, e.Start, e.End)
		}
		if e.src != nil && len(e.src) != e.End-e.Start {
			return fmt.Errorf("interval %d has %d alignment entries for %d bytes", i, len(e.src), e.End-e.Start)
		}
		cursor = e.End
	}
	if cursor != len(d.text) {
		return fmt.Errorf("intervals cover [0,%d), text has %d bytes", cursor, len(d.text))
	}
	prev := 0
	for i, s := range d.spans {
		if s.Start < prev || s.End <= s.Start || s.End > len(d.text) {
			return fmt.Errorf("atomic span %d [%d,%d) is out of order", i, s.Start, s.End)
		}
		prev = s.End
	}
	return nil
}
