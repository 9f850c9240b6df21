package pipeline

import (
	"fmt"

	"github.com/portfolio-labs/extraction-pipeline/internal/model"
)

// aggregate folds ordered chunk results into one item list, preserving
// first-seen order across chunk index and within-chunk order. Chunk notes
// gain an index prefix for traceability.
func aggregate(results []model.ChunkResult) ([]model.RawItem, []string) {
	var items []model.RawItem
	var notes []string
	for _, r := range results {
		items = append(items, r.Items...)
		for _, n := range r.Notes {
			notes = append(notes, fmt.Sprintf("chunk %d: %s", r.ChunkIndex, n))
		}
	}
	return items, notes
}
