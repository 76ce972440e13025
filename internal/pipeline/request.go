package pipeline

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnarrative/internal/dnm"
	"github.com/dgallion1/docnarrative/internal/parser"
)

// ErrInvalidRequest marks requests rejected before any work is done.
var ErrInvalidRequest = errors.New("invalid analysis request")

// Request is one document submitted for analysis, with per-request
// overrides of the analyzer defaults.
type Request struct {
	Filename string
	Title    string
	Data     []byte

	Language      string
	MathMode      string
	RootXPath     string
	IncludeTokens bool
}

// Validate checks everything that can be checked without parsing the file.
func (r Request) Validate() error {
	if !parser.IsSupportedExtension(r.Filename) {
		return fmt.Errorf("%w: %q", parser.ErrUnsupportedFormat, filepath.Ext(r.Filename))
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("%w: empty file", ErrInvalidRequest)
	}
	if r.MathMode != "" {
		if _, err := dnm.ParseMathMode(r.MathMode); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	if r.RootXPath != "" {
		if err := parser.ValidateXPath(r.RootXPath); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	return nil
}

// Key identifies the result of r: the content plus every option that can
// change the output.
func (r Request) Key() string {
	h := sha256.New()
	h.Write(r.Data)
	ext := filepath.Ext(r.Filename)
	title := r.Title
	if title == "" {
		// The loaders fall back to the file name for the title.
		title = "\x00" + strings.TrimSuffix(filepath.Base(r.Filename), ext)
	}
	for _, v := range []string{
		strings.ToLower(ext),
		title,
		strings.ToLower(r.Language),
		r.MathMode,
		r.RootXPath,
		fmt.Sprint(r.IncludeTokens),
	} {
		h.Write([]byte{0})
		h.Write([]byte(v))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (r Request) mathMode() (*dnm.MathMode, error) {
	if r.MathMode == "" {
		return nil, nil
	}
	m, err := dnm.ParseMathMode(r.MathMode)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
