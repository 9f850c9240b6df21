package parser

import (
	"fmt"
	"strings"

	"github.com/portfolio-labs/extraction-pipeline/internal/common"
)

// sanitize strips invalid UTF-8, NUL bytes and carriage returns.
func sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// ParseText passes plain text through with whitespace and encoding cleanup.
func ParseText(data []byte) (Document, error) {
	text := sanitize(string(data))
	if text == "" {
		return Document{}, fmt.Errorf("empty text payload: %w", common.ErrInvalidInput)
	}
	return Document{Text: text}, nil
}
