package doctree

import (
	"fmt"
	"strings"
)

// Path renders ref as an XPath-like location, e.g. /html/body/p[2]/text()[1].
// Positions count preceding siblings of the same tag (or the same leaf kind).
// It returns "" for refs that do not belong to t.
func (t *Tree) Path(ref NodeRef) string {
	if !t.Contains(ref) {
		return ""
	}
	if ref.index == 0 {
		return "/"
	}

	var segs []string
	for i := ref.index; i > 0; i = t.nodes[i].parent {
		segs = append(segs, t.step(i))
	}

	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(segs[i])
	}
	return b.String()
}

func (t *Tree) step(i int32) string {
	n := &t.nodes[i]
	name := stepName(n)

	pos, total := 0, 0
	for _, sib := range t.nodes[n.parent].children {
		s := &t.nodes[sib]
		if s.kind != n.kind || (n.kind == KindElement && s.tag != n.tag) {
			continue
		}
		total++
		if sib == i {
			pos = total
		}
	}
	if n.kind == KindElement && total == 1 {
		return name
	}
	return fmt.Sprintf("%s[%d]", name, pos)
}

func stepName(n *node) string {
	switch n.kind {
	case KindElement:
		return n.tag
	case KindText:
		return "text()"
	case KindComment:
		return "comment()"
	case KindDirective:
		return "processing-instruction()"
	}
	return "node()"
}
