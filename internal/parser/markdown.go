package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnarrative/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. The AST is mapped
// onto HTML element names (h1..h6, p, ul, li, pre, em, a, ...) so the same
// normalizer parameters apply to Markdown and HTML input.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	b := doctree.NewBuilder(titleFromFilename(filename, ".md", ".markdown"))
	body := b.Element(b.Root(), "body")
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		copyMarkdown(b, body, n, src)
	}
	return b.Tree(), nil
}

// copyMarkdown appends the goldmark node n under parent.
func copyMarkdown(b *doctree.Builder, parent doctree.NodeRef, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.Text:
		t := string(node.Segment.Value(src))
		if node.HardLineBreak() || node.SoftLineBreak() {
			t += "\n"
		}
		b.Text(parent, t)
		return
	case *ast.String:
		b.Text(parent, string(node.Value))
		return
	case *ast.CodeBlock, *ast.FencedCodeBlock:
		pre := b.Element(parent, "pre")
		b.Text(pre, blockLines(n, src))
		b.Text(parent, blockSeparator)
		return
	case *ast.HTMLBlock:
		b.Comment(parent, blockLines(n, src))
		return
	case *ast.RawHTML:
		var buf bytes.Buffer
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			buf.Write(seg.Value(src))
		}
		b.Comment(parent, buf.String())
		return
	case *ast.AutoLink:
		a := b.Element(parent, "a", doctree.Attr{Name: "href", Value: string(node.URL(src))})
		b.Text(a, string(node.Label(src)))
		return
	}

	tag, attrs := markdownTag(n)
	el := b.Element(parent, tag, attrs...)
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		copyMarkdown(b, el, c, src)
	}
	if n.Type() == ast.TypeBlock {
		b.Text(parent, blockSeparator)
	}
}

func markdownTag(n ast.Node) (string, []doctree.Attr) {
	switch node := n.(type) {
	case *ast.Heading:
		return fmt.Sprintf("h%d", node.Level), nil
	case *ast.Paragraph, *ast.TextBlock:
		return "p", nil
	case *ast.List:
		if node.IsOrdered() {
			return "ol", nil
		}
		return "ul", nil
	case *ast.ListItem:
		return "li", nil
	case *ast.Blockquote:
		return "blockquote", nil
	case *ast.ThematicBreak:
		return "hr", nil
	case *ast.Emphasis:
		if node.Level >= 2 {
			return "strong", nil
		}
		return "em", nil
	case *ast.CodeSpan:
		return "code", nil
	case *ast.Link:
		return "a", []doctree.Attr{{Name: "href", Value: string(node.Destination)}}
	case *ast.Image:
		return "img", []doctree.Attr{{Name: "src", Value: string(node.Destination)}}
	}
	return strings.ToLower(n.Kind().String()), nil
}

// blockLines joins the raw source lines of a block node.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}
