package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/portfolio-labs/extraction-pipeline/internal/common"
)

// ParseXLSX concatenates all sheets of a workbook, one tab-joined line
// per row. Empty rows are dropped; sheets are separated by a blank line.
func ParseXLSX(data []byte) (Document, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = wb.Close() }()

	columnSignal := false
	var b strings.Builder
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return Document{}, fmt.Errorf("reading sheet %q: %w", sheet, err)
		}
		wrote := false
		for ri, row := range rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				cells = append(cells, strings.TrimSpace(c))
			}
			line := strings.TrimSpace(strings.Join(cells, "\t"))
			if line == "" {
				continue
			}
			if ri == 0 {
				for _, c := range cells {
					if isNameHeader(c) {
						columnSignal = true
						break
					}
				}
			}
			b.WriteString(line)
			b.WriteByte('\n')
			wrote = true
		}
		if wrote {
			b.WriteByte('\n')
		}
	}

	text := sanitize(b.String())
	if text == "" {
		return Document{}, fmt.Errorf("workbook has no content: %w", common.ErrInvalidInput)
	}
	return Document{Text: text, TableHint: true, ColumnSignal: columnSignal}, nil
}
