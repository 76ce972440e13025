package analyzer

import (
	"github.com/dgallion1/docnarrative/internal/dnm"
	"github.com/dgallion1/docnarrative/internal/tokenizer"
)

// Result is the outcome of one analysis. Offsets are byte offsets into Text.
type Result struct {
	DNM       *dnm.DNM   `json:"-"`
	Title     string     `json:"title"`
	Language  string     `json:"language,omitempty"`
	Text      string     `json:"text"`
	Sentences []Sentence `json:"sentences"`
	Chunks    []Chunk    `json:"chunks"`
	Stats     Stats      `json:"stats"`

	words []tokenizer.Token
}

// Sentence is a sentence range with the tree paths of the nodes it covers.
type Sentence struct {
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Text   string   `json:"text"`
	Nodes  []string `json:"nodes"`
	Tokens []Token  `json:"tokens,omitempty"`
}

type Token struct {
	Start    int            `json:"start"`
	End      int            `json:"end"`
	Text     string         `json:"text"`
	Kind     tokenizer.Kind `json:"kind"`
	Stopword bool           `json:"stopword,omitempty"`
}

func newToken(t tokenizer.Token) Token {
	return Token{
		Start:    t.Start(),
		End:      t.End(),
		Text:     t.Text(),
		Kind:     t.Kind,
		Stopword: t.IsStopword,
	}
}

type Chunk struct {
	Index      int      `json:"index"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Text       string   `json:"text"`
	Tokens     int      `json:"tokens"`
	Sentences  [2]int   `json:"sentences"`
	Breadcrumb []string `json:"breadcrumb,omitempty"`
	PageStart  int      `json:"page_start,omitempty"`
	PageEnd    int      `json:"page_end,omitempty"`
}

type Stats struct {
	Sentences        int `json:"sentences"`
	Words            int `json:"words"`
	Stopwords        int `json:"stopwords"`
	MathPlaceholders int `json:"math_placeholders"`
}
