// Package doctree holds parsed documents as an immutable arena of nodes.
//
// A Tree is assembled once through a Builder and is read-only afterwards.
// Nodes are addressed by NodeRef values, which are plain comparable handles
// (tree identity + arena index) rather than pointers, so any number of
// derived structures can refer into a tree without owning or mutating it.
package doctree

import (
	"strings"
	"sync/atomic"
)

// Kind classifies a tree node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindDocument
	KindElement
	KindText
	KindComment
	KindDirective // doctype, processing instruction or XML declaration
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	case KindDirective:
		return "directive"
	}
	return "invalid"
}

// Attr is a single element attribute. Order is preserved from the source.
type Attr struct {
	Name  string
	Value string
}

// NodeRef identifies one node of one Tree. The zero value refers to nothing.
type NodeRef struct {
	tree  uint32
	index int32
}

// IsZero reports whether r is the zero NodeRef.
func (r NodeRef) IsZero() bool { return r.tree == 0 }

// Index returns the arena index of the node.
func (r NodeRef) Index() int { return int(r.index) }

type node struct {
	kind     Kind
	tag      string
	text     string
	attrs    []Attr
	parent   int32
	pos      int32 // index among the parent's children
	children []int32
}

// Tree is a parsed document. Arena order is insertion order, which the
// loaders in this module keep equal to document pre-order.
type Tree struct {
	Title string // Document title (from metadata or filename)

	id    uint32
	nodes []node
}

var treeSeq atomic.Uint32

// Root returns the document node.
func (t *Tree) Root() NodeRef {
	return NodeRef{tree: t.id, index: 0}
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Contains reports whether ref belongs to t and is in range.
func (t *Tree) Contains(ref NodeRef) bool {
	return ref.tree != 0 && ref.tree == t.id && ref.index >= 0 && int(ref.index) < len(t.nodes)
}

// Resolve returns the node identified by ref.
func (t *Tree) Resolve(ref NodeRef) (Node, error) {
	if ref.IsZero() {
		return Node{}, &RefError{Ref: ref, Reason: "zero reference"}
	}
	if ref.tree != t.id {
		return Node{}, &RefError{Ref: ref, Reason: "reference belongs to another tree"}
	}
	if ref.index < 0 || int(ref.index) >= len(t.nodes) {
		return Node{}, &RefError{Ref: ref, Reason: "index out of range"}
	}
	return Node{t: t, i: ref.index}, nil
}

// MustResolve is Resolve for refs known to come from t. It panics otherwise.
func (t *Tree) MustResolve(ref NodeRef) Node {
	n, err := t.Resolve(ref)
	if err != nil {
		panic(err)
	}
	return n
}

// TextContent concatenates all text leaves below ref in document order.
func (t *Tree) TextContent(ref NodeRef) string {
	if !t.Contains(ref) {
		return ""
	}
	var buf strings.Builder
	var walk func(i int32)
	walk = func(i int32) {
		n := &t.nodes[i]
		if n.kind == KindText {
			buf.WriteString(n.text)
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(ref.index)
	return buf.String()
}

// Node is a read-only view of one tree node.
type Node struct {
	t *Tree
	i int32
}

func (n Node) raw() *node { return &n.t.nodes[n.i] }

// Ref returns the reference for this node.
func (n Node) Ref() NodeRef { return NodeRef{tree: n.t.id, index: n.i} }

func (n Node) Kind() Kind { return n.raw().kind }

// Tag returns the element name, or "" for non-elements.
func (n Node) Tag() string { return n.raw().tag }

// Text returns leaf content for text, comment and directive nodes.
func (n Node) Text() string { return n.raw().text }

// Attrs returns the element attributes. The slice must not be modified.
func (n Node) Attrs() []Attr { return n.raw().attrs }

// Attr returns the value of the named attribute.
func (n Node) Attr(name string) (string, bool) {
	for _, a := range n.raw().attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasClass reports whether the whitespace-separated class attribute contains class.
func (n Node) HasClass(class string) bool {
	v, ok := n.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Parent returns the parent reference; false for the document node.
func (n Node) Parent() (NodeRef, bool) {
	r := n.raw()
	if r.parent < 0 {
		return NodeRef{}, false
	}
	return NodeRef{tree: n.t.id, index: r.parent}, true
}

// NumChildren returns the number of children.
func (n Node) NumChildren() int { return len(n.raw().children) }

// Child returns the i-th child.
func (n Node) Child(i int) NodeRef {
	return NodeRef{tree: n.t.id, index: n.raw().children[i]}
}

// Sibling returns the sibling delta positions away (1 for next, -1 for previous).
func (n Node) Sibling(delta int) (NodeRef, bool) {
	r := n.raw()
	if r.parent < 0 {
		return NodeRef{}, false
	}
	kids := n.t.nodes[r.parent].children
	j := int(r.pos) + delta
	if j < 0 || j >= len(kids) {
		return NodeRef{}, false
	}
	return NodeRef{tree: n.t.id, index: kids[j]}, true
}

// Children returns the children in document order.
func (n Node) Children() []NodeRef {
	kids := n.raw().children
	out := make([]NodeRef, len(kids))
	for i, c := range kids {
		out[i] = NodeRef{tree: n.t.id, index: c}
	}
	return out
}
