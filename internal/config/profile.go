package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/dgallion1/docnarrative/internal/analyzer"
	"github.com/dgallion1/docnarrative/internal/chunker"
	"github.com/dgallion1/docnarrative/internal/dnm"
	"github.com/dgallion1/docnarrative/internal/stopwords"
	"github.com/dgallion1/docnarrative/internal/tokenizer"
)

// Profile is a TOML analysis profile. Keys left out of the file keep their
// default values; a key that is present replaces the default outright,
// lists included.
//
//	[normalizer]
//	math_mode = "unicode"
//	skip_tags = ["head", "script", "nav"]
//
//	[tokenizer]
//	abbreviations = ["Fig.", "Eq."]
//
//	[chunking]
//	chunk_size = 256
//
//	[stopwords]
//	language = "de"
//	[stopwords.extra]
//	en = ["lemma", "theorem"]
type Profile struct {
	Normalizer dnm.Parameters   `toml:"normalizer"`
	Tokenizer  tokenizer.Config `toml:"tokenizer"`
	Chunking   chunker.Config   `toml:"chunking"`
	Stopwords  StopwordProfile  `toml:"stopwords"`
}

type StopwordProfile struct {
	Language string `toml:"language"`
	// Extra words per language, merged into the built-in lists.
	Extra map[string][]string `toml:"extra"`
}

// DefaultProfile mirrors analyzer.DefaultOptions.
func DefaultProfile() Profile {
	opts := analyzer.DefaultOptions()
	return Profile{
		Normalizer: opts.Params,
		Tokenizer:  opts.Tokenizer,
		Chunking:   opts.Chunking,
		Stopwords:  StopwordProfile{Language: opts.Language},
	}
}

// LoadProfile reads a profile file. An empty path yields the defaults.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()
	p, err := ReadProfile(f)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParseProfile decodes a profile from TOML text.
func ParseProfile(data []byte) (Profile, error) {
	return ReadProfile(bytes.NewReader(data))
}

// ReadProfile decodes a profile, rejecting unknown keys, and validates the
// normalizer parameters.
func ReadProfile(r io.Reader) (Profile, error) {
	p := DefaultProfile()
	// Tables present in the file replace the default map.
	p.Normalizer.PlaceholderTags = nil
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if p.Normalizer.PlaceholderTags == nil {
		p.Normalizer.PlaceholderTags = dnm.DefaultParameters().PlaceholderTags
	}
	if err := p.Normalizer.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Options turns the profile into analyzer options. Service settings from
// cfg override the profile's language and chunk sizes when set.
func (p Profile) Options(cfg *Config) analyzer.Options {
	opts := analyzer.Options{
		Params:    p.Normalizer,
		Tokenizer: p.Tokenizer,
		Chunking:  p.Chunking,
		Language:  p.Stopwords.Language,
	}
	if len(p.Stopwords.Extra) > 0 {
		opts.Stopwords = stopwords.NewBuiltin(p.Stopwords.Extra)
	}
	if cfg != nil {
		if cfg.DefaultLanguage != "" {
			opts.Language = cfg.DefaultLanguage
		}
		if cfg.DefaultChunkSize > 0 {
			opts.Chunking.ChunkSize = cfg.DefaultChunkSize
		}
		if cfg.DefaultChunkOverlap >= 0 {
			opts.Chunking.ChunkOverlap = cfg.DefaultChunkOverlap
		}
	}
	return opts
}
