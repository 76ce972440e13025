package analyzer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docnarrative/internal/dnm"
	"github.com/dgallion1/docnarrative/internal/doctree"
	"github.com/dgallion1/docnarrative/internal/stopwords"
	"github.com/dgallion1/docnarrative/internal/tokenizer"
)

// sample builds
//
//	<html><body><p>We compute <math/> equals zero.</p>\n<p>The cat of a king.</p></body></html>
func sample() (*doctree.Tree, doctree.NodeRef) {
	b := doctree.NewBuilder("sample")
	body := b.Element(b.Element(b.Root(), "html"), "body")
	p1 := b.Element(body, "p")
	b.Text(p1, "We compute ")
	m := b.Element(p1, "math", doctree.Attr{Name: "alttext", Value: "x+1"})
	b.Text(b.Element(m, "mi"), "x")
	b.Text(p1, " equals zero.")
	b.Text(body, "\n")
	p2 := b.Element(body, "p")
	b.Text(p2, "The cat of a king.")
	return b.Tree(), p2
}

func newAnalyzer(t *testing.T, mutate func(*Options)) *Analyzer {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	a, err := New(opts)
	require.NoError(t, err)
	return a
}

func TestAnalyze_FullDocument(t *testing.T) {
	tree, _ := sample()
	a := newAnalyzer(t, nil)

	res, err := a.Analyze(Request{Tree: tree})
	require.NoError(t, err)

	assert.Equal(t, "sample", res.Title)
	assert.Equal(t, "en", res.Language)
	assert.Equal(t, "We compute MathFormula equals zero. The cat of a king.", res.Text)

	require.Len(t, res.Sentences, 2)
	s0 := res.Sentences[0]
	assert.Equal(t, 0, s0.Start)
	assert.Equal(t, 35, s0.End)
	assert.Equal(t, "We compute MathFormula equals zero.", s0.Text)
	assert.Equal(t, []string{
		"/html/body/p[1]/text()[1]",
		"/html/body/p[1]/math",
		"/html/body/p[1]/text()[2]",
	}, s0.Nodes)
	assert.Empty(t, s0.Tokens)
	assert.Equal(t, "The cat of a king.", res.Sentences[1].Text)

	assert.Equal(t, Stats{Sentences: 2, Words: 9, Stopwords: 4, MathPlaceholders: 1}, res.Stats)

	require.Len(t, res.Chunks, 1)
	assert.Equal(t, res.Text, res.Chunks[0].Text)
	assert.Equal(t, [2]int{0, 2}, res.Chunks[0].Sentences)

	assert.Equal(t, "compute MathFormula equals zero cat king", res.WordStream())
	assert.Len(t, res.Tokens(), 12)
}

func TestAnalyze_IncludeTokens(t *testing.T) {
	tree, _ := sample()
	res, err := newAnalyzer(t, nil).Analyze(Request{Tree: tree, IncludeTokens: true})
	require.NoError(t, err)

	toks := res.Sentences[0].Tokens
	require.Len(t, toks, 6)
	assert.Equal(t, Token{Start: 0, End: 2, Text: "We", Kind: tokenizer.KindWord, Stopword: true}, toks[0])
	assert.Equal(t, Token{Start: 11, End: 22, Text: "MathFormula", Kind: tokenizer.KindMathPlaceholder}, toks[2])
	assert.Equal(t, tokenizer.KindPunctuation, toks[5].Kind)
}

func TestAnalyze_MathModeOverride(t *testing.T) {
	tree, _ := sample()
	mode := dnm.MathRemove
	res, err := newAnalyzer(t, nil).Analyze(Request{Tree: tree, MathMode: &mode})
	require.NoError(t, err)

	assert.Equal(t, "We compute equals zero. The cat of a king.", res.Text)
	assert.Equal(t, 0, res.Stats.MathPlaceholders)
	assert.Equal(t, "compute equals zero cat king", res.WordStream())
}

func TestAnalyze_SubtreeRoot(t *testing.T) {
	tree, p2 := sample()
	res, err := newAnalyzer(t, nil).Analyze(Request{Tree: tree, Root: p2})
	require.NoError(t, err)

	assert.Equal(t, "The cat of a king.", res.Text)
	require.Len(t, res.Sentences, 1)
	assert.Equal(t, []string{"/html/body/p[2]/text()[1]"}, res.Sentences[0].Nodes)
}

func TestAnalyze_Languages(t *testing.T) {
	tree, _ := sample()

	t.Run("no marking without a language", func(t *testing.T) {
		a := newAnalyzer(t, func(o *Options) { o.Language = "" })
		res, err := a.Analyze(Request{Tree: tree})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Stats.Stopwords)
		assert.Equal(t, "we compute MathFormula equals zero the cat of a king", res.WordStream())
	})

	t.Run("unknown language", func(t *testing.T) {
		_, err := newAnalyzer(t, nil).Analyze(Request{Tree: tree, Language: "xx"})
		assert.True(t, errors.Is(err, stopwords.ErrUnknownLanguage))
	})

	t.Run("custom registry", func(t *testing.T) {
		reg := stopwords.NewRegistry()
		require.NoError(t, reg.Register("toy", []string{"cat", "king"}))
		a := newAnalyzer(t, func(o *Options) { o.Stopwords = reg; o.Language = "toy" })
		res, err := a.Analyze(Request{Tree: tree})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Stats.Stopwords)
		assert.Equal(t, "we compute MathFormula equals zero the of a", res.WordStream())
	})
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := newAnalyzer(t, nil).Analyze(Request{})
	assert.Error(t, err)

	tree, _ := sample()
	other, _ := sample()
	_, err = newAnalyzer(t, nil).Analyze(Request{Tree: tree, Root: other.Root()})
	assert.True(t, errors.Is(err, doctree.ErrDanglingReference))
}

func TestNew_RejectsInvalidParameters(t *testing.T) {
	opts := DefaultOptions()
	opts.Params.SkipTags = append(opts.Params.SkipTags, "math")
	_, err := New(opts)
	assert.True(t, errors.Is(err, dnm.ErrConflictingRule))
}

func TestAnalyze_EmptyDocument(t *testing.T) {
	tree := doctree.NewBuilder("empty").Tree()
	res, err := newAnalyzer(t, nil).Analyze(Request{Tree: tree})
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Empty(t, res.Sentences)
	assert.Empty(t, res.Chunks)
	assert.Empty(t, res.WordStream())
}

func TestAnalyze_ReportsPhases(t *testing.T) {
	tree, _ := sample()
	var phases []string
	_, err := newAnalyzer(t, nil).Analyze(Request{
		Tree:    tree,
		OnPhase: func(p string) { phases = append(phases, p) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{PhaseNormalizing, PhaseTokenizing, PhaseChunking}, phases)
}
