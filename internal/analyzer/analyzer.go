// Package analyzer runs the full normalization pipeline over a document
// tree: DNM build, sentence and word segmentation, stopword marking and
// sentence-window chunking.
package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dgallion1/docnarrative/internal/chunker"
	"github.com/dgallion1/docnarrative/internal/dnm"
	"github.com/dgallion1/docnarrative/internal/doctree"
	"github.com/dgallion1/docnarrative/internal/stopwords"
	"github.com/dgallion1/docnarrative/internal/tokenizer"
)

// Options configures an Analyzer.
type Options struct {
	Params    dnm.Parameters
	Tokenizer tokenizer.Config
	Chunking  chunker.Config
	// Stopwords defaults to stopwords.Default when nil.
	Stopwords *stopwords.Registry
	// Language is used when a request names none. Empty disables marking.
	Language string
}

// DefaultOptions returns the defaults of every stage, with English stopwords.
func DefaultOptions() Options {
	return Options{
		Params:    dnm.DefaultParameters(),
		Tokenizer: tokenizer.DefaultConfig(),
		Chunking:  chunker.DefaultConfig(),
		Language:  "en",
	}
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	opts  Options
	tok   *tokenizer.Tokenizer
	stops *stopwords.Registry
}

// New validates the normalizer parameters and prepares the tokenizer.
func New(opts Options) (*Analyzer, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	stops := opts.Stopwords
	if stops == nil {
		stops = stopwords.Default
	}
	return &Analyzer{opts: opts, tok: tokenizer.New(opts.Tokenizer), stops: stops}, nil
}

// Options returns a copy of the analyzer's configuration.
func (a *Analyzer) Options() Options { return a.opts }

// Request selects what to analyze. Zero values fall back to the analyzer's
// configuration.
type Request struct {
	Tree     *doctree.Tree
	Root     doctree.NodeRef // zero means the tree's document node
	Language string
	MathMode *dnm.MathMode
	// IncludeTokens attaches per-sentence tokens to the result.
	IncludeTokens bool
	// OnPhase, when set, is called as each stage begins.
	OnPhase func(phase string)
}

// Phases reported through Request.OnPhase.
const (
	PhaseNormalizing = "normalizing"
	PhaseTokenizing  = "tokenizing"
	PhaseChunking    = "chunking"
)

func (r Request) phase(name string) {
	if r.OnPhase != nil {
		r.OnPhase(name)
	}
}

// Analyze runs every stage over req.Tree.
func (a *Analyzer) Analyze(req Request) (*Result, error) {
	if req.Tree == nil {
		return nil, fmt.Errorf("analyze: nil tree")
	}
	root := req.Root
	if root.IsZero() {
		root = req.Tree.Root()
	}
	params := a.opts.Params
	if req.MathMode != nil {
		params.MathMode = *req.MathMode
	}
	lang := req.Language
	if lang == "" {
		lang = a.opts.Language
	}

	req.phase(PhaseNormalizing)
	d, err := dnm.Build(req.Tree, root, params)
	if err != nil {
		return nil, fmt.Errorf("build dnm: %w", err)
	}

	res := &Result{
		DNM:      d,
		Title:    req.Tree.Title,
		Language: lang,
		Text:     d.Text(),

		Sentences: []Sentence{},
		Chunks:    []Chunk{},
	}

	req.phase(PhaseTokenizing)
	var ranges []dnm.Range
	for sent := range a.tok.Sentences(d.FullRange()) {
		toks := slices.Collect(a.tok.Words(sent))
		if lang != "" {
			if err := a.stops.Mark(toks, lang); err != nil {
				return nil, err
			}
		}

		s := Sentence{
			Start: sent.Start(),
			End:   sent.End(),
			Text:  sent.PlainText(),
			Nodes: paths(req.Tree, sent.CoveringNodes()),
		}
		for _, t := range toks {
			switch t.Kind {
			case tokenizer.KindMathPlaceholder:
				res.Stats.MathPlaceholders++
			case tokenizer.KindWord:
				res.Stats.Words++
				if t.IsStopword {
					res.Stats.Stopwords++
				}
			}
		}
		res.words = append(res.words, toks...)
		if req.IncludeTokens {
			s.Tokens = make([]Token, len(toks))
			for i, t := range toks {
				s.Tokens[i] = newToken(t)
			}
		}
		res.Sentences = append(res.Sentences, s)
		ranges = append(ranges, sent)
	}
	res.Stats.Sentences = len(res.Sentences)

	req.phase(PhaseChunking)
	for _, c := range chunker.Sentences(ranges, a.opts.Chunking) {
		res.Chunks = append(res.Chunks, Chunk{
			Index:      c.Index,
			Start:      c.Start(),
			End:        c.End(),
			Text:       c.PlainText(),
			Tokens:     c.Tokens,
			Sentences:  c.Sentences,
			Breadcrumb: c.Breadcrumb,
			PageStart:  c.PageStart,
			PageEnd:    c.PageEnd,
		})
	}

	return res, nil
}

func paths(tree *doctree.Tree, refs []doctree.NodeRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, tree.Path(ref))
	}
	return out
}

// WordStream renders the document for doc2vec-style consumers: every
// non-stopword word lowercased and every math placeholder verbatim, joined
// by single spaces.
func (r *Result) WordStream() string {
	var b strings.Builder
	for _, t := range r.words {
		var w string
		switch {
		case t.Kind == tokenizer.KindMathPlaceholder:
			w = t.Text()
		case t.Kind == tokenizer.KindWord && !t.IsStopword:
			w = strings.ToLower(t.Text())
		default:
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	return b.String()
}

// Tokens returns every token of the document in order.
func (r *Result) Tokens() []tokenizer.Token {
	return r.words
}
