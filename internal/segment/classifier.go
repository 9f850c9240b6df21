package segment

import (
	"regexp"
	"strings"

	"github.com/portfolio-labs/extraction-pipeline/constants"
)

// ClassifierConfig holds the detection patterns and thresholds. Patterns are
// configuration, not control flow, so they can be tuned without touching the
// classifier itself.
type ClassifierConfig struct {
	// StructuredRowRatio is the fraction of lines that must tokenize into
	// >=3 fields for the document to count as tabular.
	StructuredRowRatio float64
	// CompressedRowRatio is the fraction of lines carrying compressed-row
	// signatures (codes + percentages, mixed-case runs) that flags tabular.
	CompressedRowRatio float64
	// HeaderKeywords are column headers that, repeated above dense rows,
	// mark a table.
	HeaderKeywords []string
}

// IsZero reports whether the config carries no settings at all, so callers
// can substitute the defaults. The struct holds a slice and cannot be
// compared against a zero literal directly.
func (c ClassifierConfig) IsZero() bool {
	return c.StructuredRowRatio == 0 && c.CompressedRowRatio == 0 && len(c.HeaderKeywords) == 0
}

// DefaultClassifierConfig returns the tuned defaults.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		StructuredRowRatio: constants.StructuredRowRatio,
		CompressedRowRatio: constants.CompressedRowRatio,
		HeaderKeywords: []string{
			"product", "prodotto", "item", "name", "nome", "category", "categoria",
			"price", "prezzo", "cost", "sku", "code", "codice", "qty", "brand", "marca",
		},
	}
}

// Classification is the diagnostic result of table detection.
type Classification struct {
	IsTable            bool
	StructuredRowRatio float64
	CompressedRowRatio float64
}

var (
	reFieldSep    = regexp.MustCompile(`\t|\|| {2,}`)
	rePercent     = regexp.MustCompile(`\d{1,3}(?:[.,]\d+)?\s*%`)
	reProductCode = regexp.MustCompile(`\b[A-Z]{2,}[A-Z0-9]*[-_/]?\d+[A-Z0-9]*\b`)
	reCapsToken   = regexp.MustCompile(`\b[A-Z]{2,}[A-Z0-9]*\b`)
	reMixedRun    = regexp.MustCompile(`\b[A-Z][a-z]+[A-Z0-9][A-Za-z0-9]*\b`)
	rePipeRow     = regexp.MustCompile(`\|.*\|`)
)

// Classify heuristically decides whether text is tabular. Pure function:
// same text and config always produce the same answer.
func Classify(text string, cfg ClassifierConfig) Classification {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return Classification{}
	}

	structured := 0
	compressed := 0
	pipeRows := 0
	headerHit := false

	for _, line := range lines {
		fields := 0
		for _, f := range reFieldSep.Split(line, -1) {
			if strings.TrimSpace(f) != "" {
				fields++
			}
		}
		if fields >= 3 {
			structured++
		}
		if rePipeRow.MatchString(line) {
			pipeRows++
		}
		if isCompressedRow(line) {
			compressed++
		}
		if !headerHit && looksLikeHeader(line, cfg.HeaderKeywords) {
			headerHit = true
		}
	}

	structRatio := float64(structured) / float64(len(lines))
	compRatio := float64(compressed) / float64(len(lines))

	isTable := structRatio >= cfg.StructuredRowRatio ||
		compRatio >= cfg.CompressedRowRatio ||
		pipeRows >= 3 ||
		(headerHit && structured >= 3)

	return Classification{
		IsTable:            isTable,
		StructuredRowRatio: structRatio,
		CompressedRowRatio: compRatio,
	}
}

// isCompressedRow detects concatenated table text where column boundaries
// were lost: percentage values next to code-like or mixed-case tokens.
func isCompressedRow(line string) bool {
	if !rePercent.MatchString(line) {
		return false
	}
	return reProductCode.MatchString(line) || reCapsToken.MatchString(line) ||
		reMixedRun.MatchString(line) || strings.Count(line, "%") >= 2
}

// looksLikeHeader reports whether a line contains at least two known column
// header keywords.
func looksLikeHeader(line string, keywords []string) bool {
	lower := strings.ToLower(line)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
