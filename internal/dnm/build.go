package dnm

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docnarrative/internal/doctree"
	"github.com/dgallion1/docnarrative/internal/textnorm"
)

// Build normalizes the subtree of tree rooted at root. The tree must not be
// modified while the returned DNM is in use.
func Build(tree *doctree.Tree, root doctree.NodeRef, params Parameters) (*DNM, error) {
	if err := params.check(); err != nil {
		return nil, err
	}
	rs, err := params.compile()
	if err != nil {
		return nil, err
	}
	n, err := tree.Resolve(root)
	if err != nil {
		return nil, err
	}

	b := &builder{
		tree:   tree,
		params: params,
		rules:  rs,
		buf:    make([]byte, 0, 4096),
	}
	if err := b.walk(n); err != nil {
		return nil, err
	}
	return b.finish(root), nil
}

// builder is the single mutable pass. Every interval starts at the cursor
// (len(buf)) before emission and ends at the cursor after it.
type builder struct {
	tree    *doctree.Tree
	params  Parameters
	rules   rules
	buf     []byte
	entries []entry
	spans   []Span
}

func (b *builder) walk(n doctree.Node) error {
	switch n.Kind() {
	case doctree.KindDocument:
		return b.children(n)
	case doctree.KindText:
		b.text(n)
		return nil
	case doctree.KindElement:
		r, word := b.rules.lookup(n)
		switch r {
		case ruleSkip:
			b.zeroWidth(n.Ref(), IntervalSkip)
		case ruleMath:
			b.math(n)
		case rulePlaceholder:
			b.atomic(n.Ref(), word, IntervalPlaceholder)
		default:
			return b.children(n)
		}
		return nil
	case doctree.KindComment, doctree.KindDirective:
		if b.params.SkipNonContent {
			return nil
		}
	}
	return &NodeKindError{Ref: n.Ref(), Kind: n.Kind()}
}

func (b *builder) children(n doctree.Node) error {
	for i := 0; i < n.NumChildren(); i++ {
		if err := b.walk(b.tree.MustResolve(n.Child(i))); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) text(n doctree.Node) {
	start := len(b.buf)
	src := b.appendText(n.Text(), b.params.NormalizeUnicode, b.params.CollapseWhitespace, 0, nil)
	b.entries = append(b.entries, entry{
		Interval: Interval{Start: start, End: len(b.buf), Node: n.Ref(), Kind: IntervalText},
		src:      src,
	})
}

// appendText writes s and returns src extended with, for each written byte,
// the offset of the source rune it came from. With collapse set, whitespace
// becomes a single space and is dropped at floor or after another space.
func (b *builder) appendText(s string, translit, collapse bool, floor int, src []int32) []int32 {
	for i, r := range s {
		if translit && r >= utf8.RuneSelf {
			for _, c := range textnorm.Transliterate(r) {
				src = b.appendRune(c, collapse, floor, int32(i), src)
			}
			continue
		}
		src = b.appendRune(r, collapse, floor, int32(i), src)
	}
	return src
}

func (b *builder) appendRune(r rune, collapse bool, floor int, at int32, src []int32) []int32 {
	if collapse && textnorm.IsSpace(r) {
		if len(b.buf) == floor || b.buf[len(b.buf)-1] == ' ' {
			return src
		}
		r = ' '
	}
	n := len(b.buf)
	b.buf = utf8.AppendRune(b.buf, r)
	for ; n < len(b.buf); n++ {
		src = append(src, at)
	}
	return src
}

func (b *builder) zeroWidth(ref doctree.NodeRef, kind IntervalKind) {
	p := len(b.buf)
	b.entries = append(b.entries, entry{Interval: Interval{Start: p, End: p, Node: ref, Kind: kind}})
}

func (b *builder) atomic(ref doctree.NodeRef, word string, kind IntervalKind) {
	start := len(b.buf)
	b.buf = append(b.buf, word...)
	b.entries = append(b.entries, entry{Interval: Interval{Start: start, End: len(b.buf), Node: ref, Kind: kind}})
	b.spans = append(b.spans, Span{Start: start, End: len(b.buf), Node: ref})
}

func (b *builder) math(n doctree.Node) {
	switch b.params.MathMode {
	case MathRemove:
		b.zeroWidth(n.Ref(), IntervalMath)
	case MathPlaceholder:
		b.atomic(n.Ref(), b.params.MathPlaceholder, IntervalMath)
	case MathUnicode:
		b.mathText(n)
	}
}

// mathText linearizes the leaves of a math subtree, skipping annotations and
// whitespace-only leaves, and falls back to the alttext attribute.
func (b *builder) mathText(n doctree.Node) {
	start := len(b.buf)
	var parts []part

	emit := func(ref doctree.NodeRef, s string) {
		ps := len(b.buf)
		src := b.appendText(s, false, true, start, nil)
		if len(b.buf) > ps {
			parts = append(parts, part{start: ps, end: len(b.buf), node: ref, src: src})
		}
	}

	var visit func(m doctree.Node)
	visit = func(m doctree.Node) {
		switch m.Kind() {
		case doctree.KindText:
			if strings.TrimSpace(m.Text()) != "" {
				emit(m.Ref(), m.Text())
			}
		case doctree.KindElement:
			if isAnnotation(m.Tag()) {
				return
			}
			for i := 0; i < m.NumChildren(); i++ {
				visit(b.tree.MustResolve(m.Child(i)))
			}
		}
	}
	for i := 0; i < n.NumChildren(); i++ {
		visit(b.tree.MustResolve(n.Child(i)))
	}
	if len(parts) == 0 {
		if alt, ok := n.Attr("alttext"); ok {
			emit(n.Ref(), alt)
		}
	}

	if len(parts) > 0 && b.buf[len(b.buf)-1] == ' ' {
		b.buf = b.buf[:len(b.buf)-1]
		last := &parts[len(parts)-1]
		last.end--
		last.src = last.src[:len(last.src)-1]
	}

	b.entries = append(b.entries, entry{
		Interval: Interval{Start: start, End: len(b.buf), Node: n.Ref(), Kind: IntervalMath},
		parts:    parts,
	})
	if len(b.buf) > start {
		b.spans = append(b.spans, Span{Start: start, End: len(b.buf), Node: n.Ref()})
	}
}

func isAnnotation(tag string) bool {
	tag = strings.ToLower(tag)
	return tag == "annotation" || tag == "annotation-xml"
}

// finish trims the trailing collapsed space and freezes the result.
func (b *builder) finish(root doctree.NodeRef) *DNM {
	if b.params.CollapseWhitespace && len(b.buf) > 0 && b.buf[len(b.buf)-1] == ' ' {
		n := len(b.buf) - 1
		b.buf = b.buf[:n]
		for i := len(b.entries) - 1; i >= 0; i-- {
			e := &b.entries[i]
			if e.End <= n {
				break
			}
			e.End = n
			if e.Start > n {
				e.Start = n
			}
			if e.src != nil {
				e.src = e.src[:e.End-e.Start]
			}
		}
	}
	return &DNM{
		tree:    b.tree,
		root:    root,
		params:  b.params.clone(),
		text:    string(b.buf),
		entries: b.entries,
		spans:   b.spans,
	}
}
