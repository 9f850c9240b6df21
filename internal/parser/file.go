package parser

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/portfolio-labs/extraction-pipeline/constants"
	"github.com/portfolio-labs/extraction-pipeline/internal/common"
)

// FromFile reads path and dispatches to the front end matching its
// extension. dec handles PDF payloads and may be nil when no PDF input
// is expected.
func FromFile(path string, dec TextDecoder) (Document, constants.DocumentFormat, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, "", fmt.Errorf("resolving path: %w", err)
	}

	format := constants.FormatForPath(abs)
	if format == "" {
		return Document{}, "", fmt.Errorf("unsupported extension %q: %w",
			constants.NormalizeExt(filepath.Ext(abs)), common.ErrInvalidInput)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return Document{}, format, fmt.Errorf("reading %s: %w", abs, err)
	}

	doc, err := FromBytes(data, format, dec)
	return doc, format, err
}

// FromBytes dispatches an in-memory payload to the front end for format.
func FromBytes(data []byte, format constants.DocumentFormat, dec TextDecoder) (Document, error) {
	switch format {
	case constants.TEXT:
		return ParseText(data)
	case constants.CSV:
		return ParseCSV(data)
	case constants.XLSX:
		return ParseXLSX(data)
	case constants.JSON:
		return ParseJSON(data)
	case constants.PDF:
		if dec == nil {
			return Document{}, fmt.Errorf("pdf input needs a text decoder: %w", common.ErrInvalidInput)
		}
		text, err := dec.DecodeText(data)
		if err != nil {
			return Document{}, fmt.Errorf("decoding pdf: %w", err)
		}
		return ParseText([]byte(text))
	default:
		return Document{}, fmt.Errorf("unsupported format %q: %w", format, common.ErrInvalidInput)
	}
}
