package parser

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/portfolio-labs/extraction-pipeline/internal/common"
)

// sniffDelimiter picks the separator with the most occurrences on the
// first non-empty line. Comma wins ties.
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	best, delim := strings.Count(line, ","), ','
	if n := strings.Count(line, ";"); n > best {
		best, delim = n, ';'
	}
	if n := strings.Count(line, "\t"); n > best {
		delim = '\t'
	}
	return delim
}

// ParseCSV decodes delimited rows into header-prefixed text lines. The
// first record is treated as the header; each data row renders as
// "Header: value | Header: value" so downstream stages keep the column
// context without the positional layout.
func ParseCSV(data []byte) (Document, error) {
	text := sanitize(string(data))
	if text == "" {
		return Document{}, fmt.Errorf("empty csv payload: %w", common.ErrInvalidInput)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return Document{}, fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) < 2 {
		return Document{}, fmt.Errorf("csv has no data rows: %w", common.ErrInvalidInput)
	}

	header := records[0]
	columnSignal := false
	for _, cell := range header {
		if isNameHeader(cell) {
			columnSignal = true
			break
		}
	}

	var b strings.Builder
	for _, row := range records[1:] {
		fields := make([]string, 0, len(row))
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			label := fmt.Sprintf("col%d", i+1)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				label = strings.TrimSpace(header[i])
			}
			fields = append(fields, label+": "+cell)
		}
		if len(fields) == 0 {
			continue
		}
		b.WriteString(strings.Join(fields, " | "))
		b.WriteByte('\n')
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return Document{}, fmt.Errorf("csv has no data rows: %w", common.ErrInvalidInput)
	}
	return Document{Text: out, TableHint: true, ColumnSignal: columnSignal}, nil
}
