package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docnarrative/internal/doctree"
)

// CSVParser handles CSV files. The first record becomes a header row of th
// cells; every later record a row of td cells.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b := doctree.NewBuilder(titleFromFilename(filename, ".csv"))
	if len(records) == 0 {
		return b.Tree(), nil
	}
	table := b.Element(b.Root(), "table")

	for i, row := range records {
		cell := "td"
		if i == 0 {
			cell = "th"
		}
		tr := b.Element(table, "tr")
		for j, v := range row {
			if j > 0 {
				b.Text(tr, "\t")
			}
			b.Text(b.Element(tr, cell), v)
		}
		b.Text(table, blockSeparator)
	}

	return b.Tree(), nil
}
