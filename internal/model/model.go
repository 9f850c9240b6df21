// Package model holds the data types shared across the extraction pipeline.
package model

import "time"

// Document is the immutable pipeline input: normalized text plus hints
// produced by a byte-level front end.
type Document struct {
	Filename    string
	Text        string
	Language    string
	UserContext string
	// TableHint is set by the front end when the source was structurally
	// tabular (CSV, spreadsheet); the classifier can still flag prose text.
	TableHint bool
	// ColumnSignal is set when the front end recognized an explicit
	// item-locating column (e.g. a "product"/"name" CSV header). It feeds
	// the aggregate confidence.
	ColumnSignal bool
}

// Chunk is a bounded, overlapping slice of document text sized for one
// extraction call. Created by the segmenter, consumed exactly once by the
// coordinator, never mutated after creation.
type Chunk struct {
	Index int
	Text  string
	// Start is the chunk's byte offset in the original document text; with
	// Text it pins down the overlap with the previous chunk exactly.
	Start       int
	IsTableHint bool
}

// RawItem is one candidate portfolio item as extracted from a chunk.
// Name is the only required field; absence elsewhere means "not observed
// in source", never zero.
type RawItem struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	RawType      string         `json:"type,omitempty"`
	RawStatus    string         `json:"status,omitempty"`
	RawPriority  string         `json:"priority,omitempty"`
	Budget       *float64       `json:"budget,omitempty"`
	Owner        string         `json:"owner,omitempty"`
	StartDate    string         `json:"start_date,omitempty"`
	EndDate      string         `json:"end_date,omitempty"`
	Technologies []string       `json:"technologies,omitempty"`
	Stakeholders []string       `json:"stakeholders,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Risks        []string       `json:"risks,omitempty"`
	KPIs         []string       `json:"kpis,omitempty"`
	RawData      map[string]any `json:"raw_data,omitempty"`
}

// InfoWeight scores how much information an item carries. Used by the
// deduplication engine to pick the surviving item in a duplicate cluster.
func (it RawItem) InfoWeight() int {
	w := len(it.Description)
	if it.RawType != "" {
		w += 10
	}
	if it.RawStatus != "" {
		w += 10
	}
	if it.Budget != nil {
		w += 10
	}
	if it.Owner != "" {
		w += 10
	}
	w += 5 * (len(it.Technologies) + len(it.Stakeholders) + len(it.Dependencies) + len(it.Risks) + len(it.KPIs))
	w += 2 * len(it.RawData)
	return w
}

// ChunkResult is the per-chunk outcome folded into the aggregator.
type ChunkResult struct {
	ChunkIndex int
	Items      []RawItem
	Notes      []string
	ModelUsed  string
	Elapsed    time.Duration
}

// PipelineResult is the terminal artifact returned to callers.
type PipelineResult struct {
	Success         bool      `json:"success"`
	Items           []RawItem `json:"items"`
	Notes           []string  `json:"notes"`
	Confidence      float64   `json:"confidence"`
	ChunksProcessed int       `json:"chunks_processed"`
	TotalChars      int       `json:"total_chars"`
}
