package parser

import (
	"fmt"
	"io"

	"github.com/antchfx/xmlquery"
	"github.com/dgallion1/docnarrative/internal/doctree"
)

// XMLParser handles XHTML and XML sources such as LaTeXML output or JATS.
// Elements are named by local name, so a prefixed MathML <m:math> is still
// "math". Prefixed attributes keep their prefix.
type XMLParser struct{}

func (p *XMLParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	title := titleFromFilename(filename, ".xhtml", ".xml")
	if n := xmlquery.FindOne(doc, "//title"); n != nil {
		if t := n.InnerText(); t != "" {
			title = t
		}
	}

	b := doctree.NewBuilder(title)
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		copyXML(b, b.Root(), c)
	}
	return b.Tree(), nil
}

func copyXML(b *doctree.Builder, parent doctree.NodeRef, n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.ElementNode:
		attrs := make([]doctree.Attr, 0, len(n.Attr))
		for _, a := range n.Attr {
			name := a.Name.Local
			if a.Name.Space != "" {
				name = a.Name.Space + ":" + a.Name.Local
			}
			attrs = append(attrs, doctree.Attr{Name: name, Value: a.Value})
		}
		el := b.Element(parent, n.Data, attrs...)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			copyXML(b, el, c)
		}
		if isBlock(n.Data) {
			b.Text(parent, blockSeparator)
		}
	case xmlquery.TextNode, xmlquery.CharDataNode:
		b.Text(parent, n.Data)
	case xmlquery.CommentNode:
		b.Comment(parent, n.Data)
	case xmlquery.DeclarationNode:
		b.Directive(parent, "xml")
	}
}
