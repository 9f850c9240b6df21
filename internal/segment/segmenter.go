// Package segment splits document text into overlapping chunks sized for
// one extraction-oracle call each, and classifies text as tabular or prose
// to drive chunk sizing.
package segment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/portfolio-labs/extraction-pipeline/constants"
	"github.com/portfolio-labs/extraction-pipeline/internal/common"
	"github.com/portfolio-labs/extraction-pipeline/internal/model"
)

// Config holds segmentation tuning.
type Config struct {
	ChunkSizeProse int
	ChunkSizeTable int
	Overlap        int
	MaxChunks      int
	// BreakWindowRatio is the earliest acceptable break point as a fraction
	// of the target size. Break points before it are ignored.
	BreakWindowRatio float64
	MinDocumentLen   int
}

// Segmenter splits text into chunks.
type Segmenter struct {
	cfg Config
}

// NewSegmenter applies defaults for zero-valued config fields. Overlap must
// end up strictly smaller than both chunk sizes or the loop could stall, so
// it is clamped.
func NewSegmenter(cfg Config) *Segmenter {
	if cfg.ChunkSizeProse <= 0 {
		cfg.ChunkSizeProse = constants.ChunkSizeProse
	}
	if cfg.ChunkSizeTable <= 0 {
		cfg.ChunkSizeTable = constants.ChunkSizeTable
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = constants.ChunkOverlap
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = constants.MaxChunks
	}
	if cfg.BreakWindowRatio <= 0 || cfg.BreakWindowRatio >= 1 {
		cfg.BreakWindowRatio = constants.BreakWindowRatio
	}
	if cfg.MinDocumentLen <= 0 {
		cfg.MinDocumentLen = 10
	}
	min := cfg.ChunkSizeProse
	if cfg.ChunkSizeTable < min {
		min = cfg.ChunkSizeTable
	}
	if cfg.Overlap >= min {
		cfg.Overlap = min / 4
	}
	return &Segmenter{cfg: cfg}
}

// Split chunks text. isTable selects the smaller tabular chunk size.
// Returned notes record degradations (chunk cap); the error is only
// non-nil for unusably short input.
func (s *Segmenter) Split(text string, isTable bool) ([]model.Chunk, []string, error) {
	if len(strings.TrimSpace(text)) < s.cfg.MinDocumentLen {
		return nil, nil, fmt.Errorf("document too short (%d chars): %w", len(text), common.ErrSegmentation)
	}

	target := s.cfg.ChunkSizeProse
	if isTable {
		target = s.cfg.ChunkSizeTable
	}

	var chunks []model.Chunk
	var notes []string
	start := 0
	for start < len(text) {
		if len(chunks) >= s.cfg.MaxChunks {
			notes = append(notes, fmt.Sprintf(
				"chunk cap %d reached; %d trailing characters dropped", s.cfg.MaxChunks, len(text)-start))
			break
		}

		end := start + target
		if end >= len(text) {
			end = len(text)
		} else {
			end = s.breakPoint(text, start, end)
		}

		// Chunk text is the raw slice: trimming would break the guarantee
		// that non-overlap spans concatenate back to the original.
		chunks = append(chunks, model.Chunk{
			Index:       len(chunks),
			Text:        text[start:end],
			Start:       start,
			IsTableHint: isTable,
		})

		if end >= len(text) {
			break
		}
		next := end - s.cfg.Overlap
		for next > start+1 && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = start + 1 // forward progress no matter what
		}
		start = next
	}

	return chunks, notes, nil
}

// breakPoint picks the cut position inside (start, limit]. Prefers a
// paragraph break, then a sentence end, then any newline, considering only
// candidates past the window floor. Falls back to the exact target.
func (s *Segmenter) breakPoint(text string, start, limit int) int {
	window := text[start:limit]
	floor := int(float64(len(window)) * s.cfg.BreakWindowRatio)

	if i := strings.LastIndex(window, "\n\n"); i >= floor {
		return start + i + 2
	}
	if i := strings.LastIndex(window, ". "); i >= floor {
		return start + i + 2
	}
	if i := strings.LastIndex(window, "\n"); i >= floor {
		return start + i + 1
	}
	// No break found; cut at the target, backed off so a multi-byte rune
	// is never split across two chunks.
	for limit > start+1 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}
