package doctree

import "fmt"

// Builder assembles a Tree. It is not safe for concurrent use.
type Builder struct {
	tree   *Tree
	frozen bool
}

// NewBuilder starts a tree whose document node is already in place.
func NewBuilder(title string) *Builder {
	t := &Tree{
		Title: title,
		id:    treeSeq.Add(1),
		nodes: make([]node, 1, 64),
	}
	t.nodes[0] = node{kind: KindDocument, parent: -1}
	return &Builder{tree: t}
}

// Root returns the document node of the tree under construction.
func (b *Builder) Root() NodeRef {
	return b.tree.Root()
}

// Element appends an element under parent.
func (b *Builder) Element(parent NodeRef, tag string, attrs ...Attr) NodeRef {
	var cp []Attr
	if len(attrs) > 0 {
		cp = make([]Attr, len(attrs))
		copy(cp, attrs)
	}
	return b.add(parent, node{kind: KindElement, tag: tag, attrs: cp})
}

// Text appends a text leaf under parent.
func (b *Builder) Text(parent NodeRef, text string) NodeRef {
	return b.add(parent, node{kind: KindText, text: text})
}

// Comment appends a comment under parent.
func (b *Builder) Comment(parent NodeRef, text string) NodeRef {
	return b.add(parent, node{kind: KindComment, text: text})
}

// Directive appends a doctype/processing-instruction/declaration under parent.
func (b *Builder) Directive(parent NodeRef, text string) NodeRef {
	return b.add(parent, node{kind: KindDirective, text: text})
}

// Tree freezes the builder and returns the finished tree.
func (b *Builder) Tree() *Tree {
	b.frozen = true
	return b.tree
}

func (b *Builder) add(parent NodeRef, n node) NodeRef {
	if b.frozen {
		panic("doctree: builder used after Tree()")
	}
	if !b.tree.Contains(parent) {
		panic(fmt.Sprintf("doctree: parent %v is not part of this tree", parent))
	}
	p := &b.tree.nodes[parent.index]
	if p.kind != KindElement && p.kind != KindDocument {
		panic(fmt.Sprintf("doctree: cannot append children to a %s node", p.kind))
	}
	idx := int32(len(b.tree.nodes))
	n.parent = parent.index
	n.pos = int32(len(p.children))
	b.tree.nodes = append(b.tree.nodes, n)
	// p may have moved with the append above.
	p = &b.tree.nodes[parent.index]
	p.children = append(p.children, idx)
	return NodeRef{tree: b.tree.id, index: idx}
}
