package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docnarrative/internal/doctree"
)

// findAll returns the elements named tag in document order.
func findAll(tree *doctree.Tree, tag string) []doctree.NodeRef {
	var out []doctree.NodeRef
	var walk func(ref doctree.NodeRef)
	walk = func(ref doctree.NodeRef) {
		n := tree.MustResolve(ref)
		if n.Kind() == doctree.KindElement && n.Tag() == tag {
			out = append(out, ref)
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(tree.Root())
	return out
}

// texts returns the trimmed text content of every element named tag.
func texts(tree *doctree.Tree, tag string) []string {
	var out []string
	for _, ref := range findAll(tree, tag) {
		out = append(out, strings.TrimSpace(tree.TextContent(ref)))
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMarkdownParser_Headings(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tree.Title != "doc" {
		t.Errorf("expected title %q, got %q", "doc", tree.Title)
	}
	if got := texts(tree, "h1"); !equalStrings(got, []string{"Title"}) {
		t.Errorf("unexpected h1 texts %q", got)
	}
	if got := texts(tree, "h2"); !equalStrings(got, []string{"Section A", "Section B"}) {
		t.Errorf("unexpected h2 texts %q", got)
	}
	if got := texts(tree, "h3"); !equalStrings(got, []string{"Subsection A1"}) {
		t.Errorf("unexpected h3 texts %q", got)
	}
	want := []string{"Intro text.", "Section A content.", "Subsection A1 content.", "Section B content."}
	if got := texts(tree, "p"); !equalStrings(got, want) {
		t.Errorf("expected paragraphs %q, got %q", want, got)
	}
}

func TestMarkdownParser_BlocksAreSeparated(t *testing.T) {
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader("# Head\nBody text."), "sep.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := tree.TextContent(tree.Root())
	if !strings.Contains(got, "Head\n") {
		t.Errorf("expected a separator after the heading, got %q", got)
	}
}

func TestMarkdownParser_Inlines(t *testing.T) {
	input := "Some *em* and **strong** text with a [link](http://example.com) and `code`."

	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(input), "inline.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for tag, want := range map[string]string{"em": "em", "strong": "strong", "a": "link", "code": "code"} {
		got := texts(tree, tag)
		if len(got) != 1 || got[0] != want {
			t.Errorf("<%s>: expected %q, got %q", tag, want, got)
		}
	}
	a := tree.MustResolve(findAll(tree, "a")[0])
	if href, _ := a.Attr("href"); href != "http://example.com" {
		t.Errorf("expected href, got %q", href)
	}
}

func TestMarkdownParser_CodeBlocks(t *testing.T) {
	input := "# API Reference\n\nSome intro.\n\n## Endpoints\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n\nMore text after code.\n"

	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pre := texts(tree, "pre")
	if len(pre) != 1 || !strings.Contains(pre[0], "GET /api/users\nPOST /api/users") {
		t.Errorf("expected code block content in <pre>, got %q", pre)
	}
	paras := texts(tree, "p")
	if len(paras) == 0 || paras[len(paras)-1] != "More text after code." {
		t.Errorf("expected post-code paragraph, got %q", paras)
	}
}

func TestMarkdownParser_Lists(t *testing.T) {
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader("- one\n- two\n\n1. first\n"), "list.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(findAll(tree, "ul")); n != 1 {
		t.Errorf("expected 1 ul, got %d", n)
	}
	if n := len(findAll(tree, "ol")); n != 1 {
		t.Errorf("expected 1 ol, got %d", n)
	}
	if got := texts(tree, "li"); !equalStrings(got, []string{"one", "two", "first"}) {
		t.Errorf("unexpected list items %q", got)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := findAll(tree, "body")
	if len(body) != 1 {
		t.Fatalf("expected a body element, got %d", len(body))
	}
	if n := tree.MustResolve(body[0]).NumChildren(); n != 0 {
		t.Errorf("expected 0 children for empty input, got %d", n)
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"dir/plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		tree, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if tree.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, tree.Title)
		}
	}
}
