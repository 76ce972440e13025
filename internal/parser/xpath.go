package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xpath"
	"github.com/dgallion1/docnarrative/internal/doctree"
)

// ErrNoMatch is returned by SelectOne when the expression selects nothing.
var ErrNoMatch = errors.New("xpath selected no nodes")

// Select evaluates an XPath expression against any doctree.Tree, whatever
// format it was loaded from, and returns the matching nodes in document
// order. Attribute matches resolve to their owning element.
func Select(tree *doctree.Tree, expr string) ([]doctree.NodeRef, error) {
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	it := e.Select(newNavigator(tree))
	var out []doctree.NodeRef
	seen := make(map[doctree.NodeRef]bool)
	for it.MoveNext() {
		nav, ok := it.Current().(*navigator)
		if !ok {
			continue
		}
		ref := nav.cur.Ref()
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out, nil
}

// ValidateXPath reports whether expr compiles.
func ValidateXPath(expr string) error {
	if _, err := xpath.Compile(expr); err != nil {
		return fmt.Errorf("invalid xpath: %w", err)
	}
	return nil
}

// SelectOne returns the first node matched by expr.
func SelectOne(tree *doctree.Tree, expr string) (doctree.NodeRef, error) {
	refs, err := Select(tree, expr)
	if err != nil {
		return doctree.NodeRef{}, err
	}
	if len(refs) == 0 {
		return doctree.NodeRef{}, fmt.Errorf("%w: %s", ErrNoMatch, expr)
	}
	return refs[0], nil
}

// navigator implements xpath.NodeNavigator over a doctree.Tree.
type navigator struct {
	tree *doctree.Tree
	cur  doctree.Node
	attr int // index into cur.Attrs(), -1 when positioned on the node itself
}

func newNavigator(t *doctree.Tree) *navigator {
	return &navigator{tree: t, cur: t.MustResolve(t.Root()), attr: -1}
}

func (x *navigator) NodeType() xpath.NodeType {
	switch x.cur.Kind() {
	case doctree.KindDocument:
		return xpath.RootNode
	case doctree.KindElement:
		if x.attr >= 0 {
			return xpath.AttributeNode
		}
		return xpath.ElementNode
	case doctree.KindText:
		return xpath.TextNode
	}
	// Comments and directives.
	return xpath.CommentNode
}

func splitName(name string) (prefix, local string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func (x *navigator) LocalName() string {
	if x.attr >= 0 {
		_, local := splitName(x.cur.Attrs()[x.attr].Name)
		return local
	}
	return x.cur.Tag()
}

func (x *navigator) Prefix() string {
	if x.attr >= 0 {
		prefix, _ := splitName(x.cur.Attrs()[x.attr].Name)
		return prefix
	}
	return ""
}

func (x *navigator) Value() string {
	if x.attr >= 0 {
		return x.cur.Attrs()[x.attr].Value
	}
	switch x.cur.Kind() {
	case doctree.KindDocument, doctree.KindElement:
		return x.tree.TextContent(x.cur.Ref())
	}
	return x.cur.Text()
}

func (x *navigator) Copy() xpath.NodeNavigator {
	n := *x
	return &n
}

func (x *navigator) MoveToRoot() {
	x.cur = x.tree.MustResolve(x.tree.Root())
	x.attr = -1
}

func (x *navigator) MoveToParent() bool {
	if x.attr >= 0 {
		x.attr = -1
		return true
	}
	p, ok := x.cur.Parent()
	if !ok {
		return false
	}
	x.cur = x.tree.MustResolve(p)
	return true
}

func (x *navigator) MoveToNextAttribute() bool {
	if x.cur.Kind() != doctree.KindElement || x.attr+1 >= len(x.cur.Attrs()) {
		return false
	}
	x.attr++
	return true
}

func (x *navigator) MoveToChild() bool {
	if x.attr >= 0 || x.cur.NumChildren() == 0 {
		return false
	}
	x.cur = x.tree.MustResolve(x.cur.Child(0))
	return true
}

func (x *navigator) MoveToFirst() bool {
	if x.attr >= 0 {
		return false
	}
	p, ok := x.cur.Parent()
	if !ok {
		return false
	}
	x.cur = x.tree.MustResolve(x.tree.MustResolve(p).Child(0))
	return true
}

func (x *navigator) MoveToNext() bool {
	return x.moveSibling(1)
}

func (x *navigator) MoveToPrevious() bool {
	return x.moveSibling(-1)
}

func (x *navigator) moveSibling(delta int) bool {
	if x.attr >= 0 {
		return false
	}
	s, ok := x.cur.Sibling(delta)
	if !ok {
		return false
	}
	x.cur = x.tree.MustResolve(s)
	return true
}

func (x *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.tree != x.tree {
		return false
	}
	x.cur = o.cur
	x.attr = o.attr
	return true
}
