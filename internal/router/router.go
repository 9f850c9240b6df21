// Package router scores chunk complexity and picks the extraction-oracle
// tier. Selection is a pure function of its inputs so tier choice is fully
// testable; there is no hidden state.
package router

import (
	"fmt"
	"regexp"
	"strings"
)

// Tier identifies an extraction-oracle configuration.
type Tier string

const (
	// TierFast is the cheap, lower-latency tier.
	TierFast Tier = "fast"
	// TierAccurate is the expensive, higher-accuracy tier.
	TierAccurate Tier = "accurate"
)

// Config holds the complexity thresholds. Any single strong signal routes
// a tabular chunk to the accurate tier.
type Config struct {
	// MinChunkLen below which everything routes fast.
	MinChunkLen int
	// CodedTokenDensity is coded tokens per line above which rows count as
	// compressed and hard to parse.
	CodedTokenDensity float64
	// HighRowCount routes accurate on its own.
	HighRowCount int
	// RowCount and NumericDensity combine: at least RowCount rows with
	// NumericDensity numeric/currency tokens per row.
	RowCount       int
	NumericDensity float64
	// SeparatorRatio is structural separators per row above which the table
	// is wide enough to warrant the accurate tier.
	SeparatorRatio float64
}

// DefaultConfig returns the tuned thresholds.
func DefaultConfig() Config {
	return Config{
		MinChunkLen:       200,
		CodedTokenDensity: 0.5,
		HighRowCount:      40,
		RowCount:          10,
		NumericDensity:    2.0,
		SeparatorRatio:    3.0,
	}
}

// Decision is the routing outcome, with a human-readable reason for logs
// and diagnostics.
type Decision struct {
	Tier   Tier
	Reason string
}

var (
	reCoded     = regexp.MustCompile(`\b[A-Z0-9]{2,}[-_/]?[A-Z0-9]+\b`)
	reNumeric   = regexp.MustCompile(`\d+(?:[.,]\d+)?%?|[€$£]\s?\d+`)
	reSeparator = regexp.MustCompile(`\t|\|| {2,}`)
)

// SelectTier decides the tier for one chunk. The fastMode override beats
// every heuristic.
func SelectTier(chunkText string, isTableHint, fastMode bool, cfg Config) Decision {
	if fastMode {
		return Decision{Tier: TierFast, Reason: "fast mode override"}
	}
	if !isTableHint {
		return Decision{Tier: TierFast, Reason: "non-tabular chunk"}
	}
	if len(chunkText) < cfg.MinChunkLen {
		return Decision{Tier: TierFast, Reason: fmt.Sprintf("short chunk (%d chars)", len(chunkText))}
	}

	lines := strings.Split(chunkText, "\n")
	rows := 0
	coded := 0
	numeric := 0
	separators := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows++
		coded += len(reCoded.FindAllString(line, -1))
		numeric += len(reNumeric.FindAllString(line, -1))
		separators += len(reSeparator.FindAllString(line, -1))
	}
	if rows == 0 {
		return Decision{Tier: TierFast, Reason: "no rows"}
	}

	codedPerRow := float64(coded) / float64(rows)
	numericPerRow := float64(numeric) / float64(rows)
	sepPerRow := float64(separators) / float64(rows)

	switch {
	case codedPerRow >= cfg.CodedTokenDensity:
		return Decision{Tier: TierAccurate,
			Reason: fmt.Sprintf("high coded-token density (%.2f/row)", codedPerRow)}
	case rows >= cfg.HighRowCount:
		return Decision{Tier: TierAccurate,
			Reason: fmt.Sprintf("row count %d above threshold", rows)}
	case sepPerRow >= cfg.SeparatorRatio:
		return Decision{Tier: TierAccurate,
			Reason: fmt.Sprintf("wide rows (%.1f separators/row)", sepPerRow)}
	case rows >= cfg.RowCount && numericPerRow >= cfg.NumericDensity:
		return Decision{Tier: TierAccurate,
			Reason: fmt.Sprintf("%d dense numeric rows (%.1f values/row)", rows, numericPerRow)}
	default:
		return Decision{Tier: TierFast,
			Reason: fmt.Sprintf("simple table (%d rows, %.2f coded/row)", rows, codedPerRow)}
	}
}
