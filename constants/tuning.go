package constants

import "time"

// Tuning defaults for the extraction pipeline. These values are empirically
// tuned; callers override them through pipeline.Options or package configs
// rather than editing here.
const (
	// Segmentation.
	ChunkSizeProse   = 8000 // target chunk characters for free text
	ChunkSizeTable   = 3000 // smaller chunks for tabular content, more parallelism
	ChunkOverlap     = 200  // characters shared by adjacent chunks
	MaxChunks        = 50   // hard cap; chunks past this are dropped with a note
	BreakWindowRatio = 0.70 // earliest acceptable break point, fraction of target

	// Classification thresholds.
	StructuredRowRatio = 0.30 // fraction of >=3-field lines to call a doc tabular
	CompressedRowRatio = 0.15 // fraction of compressed-row lines to call a doc tabular

	// Coordinator.
	MaxConcurrency = 5
	CallTimeout    = 60 * time.Second
	MaxRetries     = 2
	MaxOrphanCalls = 20 // cap on leaked timed-out oracle calls per process

	// Cache.
	L1MaxEntries = 1024
	CacheTTL     = 24 * time.Hour

	// Deduplication.
	SimilarityThreshold = 0.95 // strict: distinct product variants must survive
	LSHCutover          = 100  // corpus size at which MinHash/LSH replaces brute force
	MinHashBands        = 20
	MinHashRows         = 5
	ShingleSize         = 3

	// Noise filter.
	MaxNameLength   = 300
	MinNameLength   = 3
	MaxNameWords    = 12
	MaxLowercaseLen = 40 // all-lowercase names longer than this read as prose
)
