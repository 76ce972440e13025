package dnm

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dgallion1/docnarrative/internal/doctree"
)

// MathMode controls how math subtrees are rendered into the text.
type MathMode uint8

const (
	// MathRemove contributes no characters; a zero-width interval is still recorded.
	MathRemove MathMode = iota
	// MathPlaceholder emits Parameters.MathPlaceholder as one atomic span.
	MathPlaceholder
	// MathUnicode emits a best-effort linearization of the math text as one atomic span.
	MathUnicode
)

// DefaultMathPlaceholder is a word that does not occur in ordinary prose.
const DefaultMathPlaceholder = "MathFormula"

func (m MathMode) String() string {
	switch m {
	case MathRemove:
		return "remove"
	case MathPlaceholder:
		return "placeholder"
	case MathUnicode:
		return "unicode_approximation"
	}
	return fmt.Sprintf("MathMode(%d)", uint8(m))
}

// ParseMathMode accepts the names produced by String, plus "unicode".
func ParseMathMode(s string) (MathMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "remove":
		return MathRemove, nil
	case "placeholder":
		return MathPlaceholder, nil
	case "unicode_approximation", "unicode":
		return MathUnicode, nil
	}
	return 0, fmt.Errorf("%w: unknown math mode %q", ErrInvalidParameters, s)
}

func (m MathMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MathMode) UnmarshalText(b []byte) error {
	v, err := ParseMathMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Parameters configures Build. Each option is independent.
type Parameters struct {
	CollapseWhitespace bool     `toml:"collapse_whitespace" json:"collapse_whitespace"`
	NormalizeUnicode   bool     `toml:"normalize_unicode" json:"normalize_unicode"`
	MathMode           MathMode `toml:"math_mode" json:"math_mode"`
	MathPlaceholder    string   `toml:"math_placeholder" json:"math_placeholder"`
	MathTags           []string `toml:"math_tags" json:"math_tags"`

	// SkipTags name elements whose subtree contributes no text.
	SkipTags []string `toml:"skip_tags" json:"skip_tags"`
	// SkipClasses skip elements carrying any of these class tokens.
	SkipClasses []string `toml:"skip_classes" json:"skip_classes"`
	// PlaceholderTags replace an element's subtree by a fixed word, kept atomic.
	PlaceholderTags map[string]string `toml:"placeholder_tags" json:"placeholder_tags"`

	// SkipNonContent drops comments and directives. When false they fail the build.
	SkipNonContent bool `toml:"skip_non_content" json:"skip_non_content"`
}

// DefaultParameters returns the settings used for scientific HTML/XML.
func DefaultParameters() Parameters {
	return Parameters{
		CollapseWhitespace: true,
		NormalizeUnicode:   true,
		MathMode:           MathPlaceholder,
		MathPlaceholder:    DefaultMathPlaceholder,
		MathTags:           []string{"math"},
		SkipTags:           []string{"head", "script", "style", "noscript", "template"},
		SkipClasses:        []string{"ltx_bibliography", "ltx_note_outer", "ltx_page_footer"},
		PlaceholderTags:    map[string]string{"cite": "CitationElement"},
		SkipNonContent:     true,
	}
}

// Validate rejects unusable settings. A tag that appears in more than one of
// MathTags, SkipTags and PlaceholderTags is a configuration error; no
// precedence is guessed.
func (p Parameters) Validate() error {
	if err := p.check(); err != nil {
		return err
	}
	_, err := p.compile()
	return err
}

func (p Parameters) check() error {
	if p.MathMode > MathUnicode {
		return fmt.Errorf("%w: unknown math mode %d", ErrInvalidParameters, p.MathMode)
	}
	if p.MathMode == MathPlaceholder && !validWord(p.MathPlaceholder) {
		return fmt.Errorf("%w: math placeholder %q must be non-empty without surrounding space", ErrInvalidParameters, p.MathPlaceholder)
	}
	for tag, word := range p.PlaceholderTags {
		if !validWord(word) {
			return fmt.Errorf("%w: placeholder for <%s> %q must be non-empty without surrounding space", ErrInvalidParameters, tag, word)
		}
	}
	return nil
}

// clone copies the slices and map so the DNM does not share them with the caller.
func (p Parameters) clone() Parameters {
	p.MathTags = slices.Clone(p.MathTags)
	p.SkipTags = slices.Clone(p.SkipTags)
	p.SkipClasses = slices.Clone(p.SkipClasses)
	p.PlaceholderTags = maps.Clone(p.PlaceholderTags)
	return p
}

func validWord(s string) bool {
	return s != "" && strings.TrimSpace(s) == s
}

type rule uint8

const (
	ruleDescend rule = iota
	ruleSkip
	ruleMath
	rulePlaceholder
)

func (r rule) String() string {
	switch r {
	case ruleSkip:
		return "skip_tags"
	case ruleMath:
		return "math_tags"
	case rulePlaceholder:
		return "placeholder_tags"
	}
	return "descend"
}

// rules maps tag names to their handling, compiled once per Build.
type rules struct {
	tags         map[string]rule
	placeholders map[string]string
	skipClasses  []string
}

func (p Parameters) compile() (rules, error) {
	rs := rules{
		tags:         make(map[string]rule),
		placeholders: make(map[string]string, len(p.PlaceholderTags)),
		skipClasses:  p.SkipClasses,
	}
	add := func(tag string, r rule) error {
		tag = strings.ToLower(tag)
		if prev, ok := rs.tags[tag]; ok && prev != r {
			return &RuleError{Tag: tag, First: prev.String(), Second: r.String()}
		}
		rs.tags[tag] = r
		return nil
	}
	for _, t := range p.MathTags {
		if err := add(t, ruleMath); err != nil {
			return rules{}, err
		}
	}
	for _, t := range p.SkipTags {
		if err := add(t, ruleSkip); err != nil {
			return rules{}, err
		}
	}
	for t, word := range p.PlaceholderTags {
		if err := add(t, rulePlaceholder); err != nil {
			return rules{}, err
		}
		rs.placeholders[strings.ToLower(t)] = word
	}
	return rs, nil
}

func (rs rules) lookup(n doctree.Node) (rule, string) {
	tag := strings.ToLower(n.Tag())
	if r, ok := rs.tags[tag]; ok {
		return r, rs.placeholders[tag]
	}
	for _, c := range rs.skipClasses {
		if n.HasClass(c) {
			return ruleSkip, ""
		}
	}
	return ruleDescend, ""
}
