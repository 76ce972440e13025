// Package stopwords classifies word tokens against per-language stopword
// sets. Sets are loaded lazily, once per language, and never reloaded.
package stopwords

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/dgallion1/docnarrative/internal/textnorm"
	"github.com/dgallion1/docnarrative/internal/tokenizer"
)

//go:embed lists/*.txt
var lists embed.FS

var (
	// ErrUnknownLanguage is returned for a language with no registered set.
	ErrUnknownLanguage = errors.New("unknown stopword language")
	// ErrAlreadyRegistered is returned when a language is registered twice.
	ErrAlreadyRegistered = errors.New("stopword language already registered")
)

// LanguageError names the language that failed.
type LanguageError struct {
	Lang string
	Err  error
}

func (e *LanguageError) Error() string {
	return fmt.Sprintf("stopwords %q: %v", e.Lang, e.Err)
}

func (e *LanguageError) Unwrap() error { return e.Err }

// Loader produces the raw word list for one language.
type Loader func() ([]string, error)

// Set is an immutable set of folded word forms.
type Set struct {
	words map[string]struct{}
}

// Contains folds w and reports membership.
func (s Set) Contains(w string) bool {
	_, ok := s.words[textnorm.Fold(w)]
	return ok
}

// Len returns the number of distinct folded forms.
func (s Set) Len() int { return len(s.words) }

type entry struct {
	once sync.Once
	load Loader
	set  Set
	err  error
}

func (e *entry) get() (Set, error) {
	e.once.Do(func() {
		words, err := e.load()
		if err != nil {
			e.err = err
			return
		}
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			if f := textnorm.Fold(w); f != "" {
				m[f] = struct{}{}
			}
		}
		e.set = Set{words: m}
	})
	return e.set, e.err
}

// Registry maps language codes to lazily loaded sets. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	langs map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{langs: make(map[string]*entry)}
}

// NewBuiltin returns a registry holding the embedded lists, each extended by
// extra[lang]. Languages present only in extra are registered as given. It
// panics if the embedded lists are unreadable.
func NewBuiltin(extra map[string][]string) *Registry {
	r, err := loadLists(lists, "lists", extra)
	if err != nil {
		panic(fmt.Sprintf("stopwords: embedded lists: %v", err))
	}
	return r
}

// loadLists registers one lazily read set per dir/<lang>.txt in fsys.
func loadLists(fsys fs.FS, dir string, extra map[string][]string) (*Registry, error) {
	r := NewRegistry()
	more := make(map[string][]string, len(extra))
	for l, words := range extra {
		l = normLang(l)
		more[l] = append(more[l], words...)
	}
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var n int
	for _, f := range files {
		if f.IsDir() || path.Ext(f.Name()) != ".txt" {
			continue
		}
		n++
		lang := strings.TrimSuffix(f.Name(), ".txt")
		name := path.Join(dir, f.Name())
		add := more[lang]
		delete(more, lang)
		err := r.RegisterLoader(lang, func() ([]string, error) {
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return nil, err
			}
			return append(ParseList(string(data)), add...), nil
		})
		if err != nil {
			return nil, err
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("no stopword lists in %s", dir)
	}
	for lang, words := range more {
		if err := r.Register(lang, words); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ParseList splits a word list with one entry per line. Blank lines and
// lines starting with '#' are ignored.
func ParseList(data string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func normLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

// Register adds a fixed word list for lang.
func (r *Registry) Register(lang string, words []string) error {
	words = slices.Clone(words)
	return r.RegisterLoader(lang, func() ([]string, error) { return words, nil })
}

// RegisterLoader adds lang with a loader that runs on first use.
func (r *Registry) RegisterLoader(lang string, load Loader) error {
	lang = normLang(lang)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.langs[lang]; ok {
		return &LanguageError{Lang: lang, Err: ErrAlreadyRegistered}
	}
	r.langs[lang] = &entry{load: load}
	return nil
}

// Languages returns the registered language codes, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.langs))
	for l := range r.langs {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// Set returns the loaded set for lang.
func (r *Registry) Set(lang string) (Set, error) {
	lang = normLang(lang)
	r.mu.RLock()
	e, ok := r.langs[lang]
	r.mu.RUnlock()
	if !ok {
		return Set{}, &LanguageError{Lang: lang, Err: ErrUnknownLanguage}
	}
	s, err := e.get()
	if err != nil {
		return Set{}, &LanguageError{Lang: lang, Err: err}
	}
	return s, nil
}

// IsStopword reports whether tok is a stopword in lang. Only word tokens can
// be stopwords.
func (r *Registry) IsStopword(tok tokenizer.Token, lang string) (bool, error) {
	s, err := r.Set(lang)
	if err != nil {
		return false, err
	}
	return tok.Kind == tokenizer.KindWord && s.Contains(tok.Text()), nil
}

// Mark sets IsStopword on every token in place.
func (r *Registry) Mark(tokens []tokenizer.Token, lang string) error {
	s, err := r.Set(lang)
	if err != nil {
		return err
	}
	for i := range tokens {
		tokens[i].IsStopword = tokens[i].Kind == tokenizer.KindWord && s.Contains(tokens[i].Text())
	}
	return nil
}

// Filter returns the tokens that are not stopwords.
func (r *Registry) Filter(tokens []tokenizer.Token, lang string) ([]tokenizer.Token, error) {
	s, err := r.Set(lang)
	if err != nil {
		return nil, err
	}
	out := make([]tokenizer.Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == tokenizer.KindWord && s.Contains(tok.Text()) {
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}

// Default holds the embedded lists and backs the package-level functions.
var Default = NewBuiltin(nil)

func IsStopword(tok tokenizer.Token, lang string) (bool, error) {
	return Default.IsStopword(tok, lang)
}

func Mark(tokens []tokenizer.Token, lang string) error {
	return Default.Mark(tokens, lang)
}

func Filter(tokens []tokenizer.Token, lang string) ([]tokenizer.Token, error) {
	return Default.Filter(tokens, lang)
}
