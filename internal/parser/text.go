package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docnarrative/internal/doctree"
)

// TextParser handles plain text files. Blank lines separate paragraphs;
// each paragraph becomes a p element with a single text leaf.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	b := doctree.NewBuilder(titleFromFilename(filename, ".txt"))
	if len(paragraphs) == 0 {
		return b.Tree(), nil
	}
	body := b.Element(b.Root(), "body")
	for _, para := range paragraphs {
		b.Text(b.Element(body, "p"), para)
		b.Text(body, blockSeparator)
	}

	return b.Tree(), nil
}
