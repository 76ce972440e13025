package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnarrative/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. The whole parse tree is kept, including
// whitespace text, comments and the doctype; deciding what contributes text
// is left to the normalizer. Block elements are followed by a separator leaf
// so adjacent blocks never run together.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := titleFromFilename(filename, ".html", ".htm")
	// Extract title from <title> tag if present.
	if t := findTitle(doc); t != "" {
		title = t
	}

	b := doctree.NewBuilder(title)
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		copyHTML(b, b.Root(), c)
	}
	return b.Tree(), nil
}

// copyHTML appends n and its subtree under parent in pre-order.
func copyHTML(b *doctree.Builder, parent doctree.NodeRef, n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		var attrs []doctree.Attr
		for _, a := range n.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			attrs = append(attrs, doctree.Attr{Name: name, Value: a.Val})
		}
		el := b.Element(parent, n.Data, attrs...)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			copyHTML(b, el, c)
		}
		if isBlock(n.Data) {
			b.Text(parent, blockSeparator)
		}
	case html.TextNode:
		b.Text(parent, n.Data)
	case html.CommentNode:
		b.Comment(parent, n.Data)
	case html.DoctypeNode:
		b.Directive(parent, "DOCTYPE "+n.Data)
	}
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
