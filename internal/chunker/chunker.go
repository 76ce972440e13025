package chunker

import (
	"strconv"

	"github.com/dgallion1/docnarrative/internal/dnm"
	"github.com/dgallion1/docnarrative/internal/doctree"
	"github.com/dgallion1/docnarrative/internal/textnorm"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int `toml:"chunk_size" json:"chunk_size"`       // Target chunk size in tokens.
	ChunkOverlap int `toml:"chunk_overlap" json:"chunk_overlap"` // Overlap between consecutive chunks in tokens.
	MinChunk     int `toml:"min_chunk" json:"min_chunk"`         // Minimum chunk size to emit.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    512,
		ChunkOverlap: 64,
		MinChunk:     1,
	}
}

// Chunk is a window of whole sentences. It is itself a dnm.Range, so a
// chunk maps back to tree nodes like any other range.
type Chunk struct {
	dnm.Range
	Index      int
	Sentences  [2]int // half-open index range into the input sentences
	Tokens     int
	Breadcrumb []string // enclosing h1..h6 headings, outermost first
	PageStart  int      // 0 when the source has no pages
	PageEnd    int
}

// Sentences groups consecutive sentence ranges into windows of about
// cfg.ChunkSize tokens. Consecutive windows share trailing sentences worth
// up to cfg.ChunkOverlap tokens. A sentence larger than the budget becomes
// a chunk of its own; sentences are never split.
func Sentences(sentences []dnm.Range, cfg Config) []Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 512
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = 1
	}
	if len(sentences) == 0 {
		return nil
	}

	counts := make([]int, len(sentences))
	for i, s := range sentences {
		counts[i] = EstimateTokens(s.PlainText())
	}

	d := sentences[0].DNM()
	outline := newOutline(d)

	var chunks []Chunk
	first := 0
	for first < len(sentences) {
		last := first
		total := counts[first]
		for last+1 < len(sentences) && total+counts[last+1] <= cfg.ChunkSize {
			last++
			total += counts[last]
		}

		if total >= cfg.MinChunk {
			r, err := d.Range(sentences[first].Start(), sentences[last].End())
			if err == nil {
				c := Chunk{
					Range:     r,
					Index:     len(chunks),
					Sentences: [2]int{first, last + 1},
					Tokens:    total,
				}
				c.Breadcrumb = outline.breadcrumb(r.Start())
				c.PageStart, c.PageEnd = outline.pages(r)
				chunks = append(chunks, c)
			}
		}

		if last+1 >= len(sentences) {
			break
		}

		// Start next chunk with overlap from end of current.
		next := last + 1
		overlap := 0
		for next-1 > first && overlap+counts[next-1] <= cfg.ChunkOverlap {
			next--
			overlap += counts[next]
		}
		first = next
	}

	return chunks
}

type heading struct {
	start int
	level int
	text  string
}

// outline indexes the headings and page markers of a DNM once so that
// every chunk can look up its context by offset.
type outline struct {
	d        *dnm.DNM
	headings []heading
}

func newOutline(d *dnm.DNM) *outline {
	o := &outline{d: d}
	tree := d.Tree()
	seen := make(map[doctree.NodeRef]bool)
	for _, iv := range d.Intervals() {
		if iv.Start == iv.End {
			continue
		}
		ref, level, ok := headingAncestor(tree, iv.Node)
		if !ok || seen[ref] {
			continue
		}
		seen[ref] = true
		o.headings = append(o.headings, heading{
			start: iv.Start,
			level: level,
			text:  textnorm.CollapseSpace(tree.TextContent(ref)),
		})
	}
	return o
}

func headingLevel(n doctree.Node) int {
	tag := n.Tag()
	if n.Kind() != doctree.KindElement || len(tag) != 2 || tag[0] != 'h' || tag[1] < '1' || tag[1] > '6' {
		return 0
	}
	return int(tag[1] - '0')
}

func headingAncestor(tree *doctree.Tree, ref doctree.NodeRef) (doctree.NodeRef, int, bool) {
	for {
		n := tree.MustResolve(ref)
		if level := headingLevel(n); level > 0 {
			return ref, level, true
		}
		p, ok := n.Parent()
		if !ok {
			return doctree.NodeRef{}, 0, false
		}
		ref = p
	}
}

// breadcrumb returns the heading stack in effect at offset off.
func (o *outline) breadcrumb(off int) []string {
	var stack []heading
	for _, h := range o.headings {
		if h.start > off {
			break
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, h)
	}
	if len(stack) == 0 {
		return nil
	}
	out := make([]string, len(stack))
	for i, h := range stack {
		out[i] = h.text
	}
	return out
}

// pages returns the first and last data-page numbers among the nodes
// covering r.
func (o *outline) pages(r dnm.Range) (int, int) {
	tree := o.d.Tree()
	start, end := 0, 0
	for _, ref := range r.CoveringNodes() {
		p := pageOf(tree, ref)
		if p == 0 {
			continue
		}
		if start == 0 || p < start {
			start = p
		}
		if p > end {
			end = p
		}
	}
	return start, end
}

func pageOf(tree *doctree.Tree, ref doctree.NodeRef) int {
	for {
		n := tree.MustResolve(ref)
		if v, ok := n.Attr("data-page"); ok {
			if p, err := strconv.Atoi(v); err == nil {
				return p
			}
		}
		parent, ok := n.Parent()
		if !ok {
			return 0
		}
		ref = parent
	}
}
