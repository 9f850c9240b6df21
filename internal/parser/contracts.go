// Package parser normalizes raw catalog bytes into plain text the
// segmentation stage can consume. Each front end handles one byte format
// and reports whether the content looks tabular and whether a recognizable
// name column was present.
package parser

import "strings"

// Document is the decoded front-end output consumed by the pipeline.
type Document struct {
	Text string
	// TableHint marks content that arrived in row/column form, so the
	// segmenter can prefer smaller chunks up front.
	TableHint bool
	// ColumnSignal is true when the source carried an identifiable
	// name/product column. Feeds the aggregate confidence score.
	ColumnSignal bool
}

// TextDecoder extracts plain text from an opaque byte payload. Binary
// formats without a native front end (PDF in particular) are injected
// through this seam.
type TextDecoder interface {
	DecodeText(data []byte) (string, error)
}

// PlainDecoder treats the payload as UTF-8 text. Stands in for a real
// PDF decoder in tests and text-only deployments.
type PlainDecoder struct{}

func (PlainDecoder) DecodeText(data []byte) (string, error) {
	return sanitize(string(data)), nil
}

// nameHeaders are the header tokens accepted as a name/product column.
var nameHeaders = []string{
	"name", "product", "item", "title", "model",
	"nome", "prodotto", "articolo", "modello", "descrizione",
}

func isNameHeader(cell string) bool {
	c := strings.ToLower(strings.TrimSpace(cell))
	for _, h := range nameHeaders {
		if strings.Contains(c, h) {
			return true
		}
	}
	return false
}
