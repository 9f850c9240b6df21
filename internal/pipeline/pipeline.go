// Package pipeline wires the extraction stages into one entry point:
// classify, segment, extract under bounded concurrency, filter, dedupe,
// aggregate. Callers always get a structured result with notes; only
// segmentation failure and total extraction exhaustion surface as errors.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/portfolio-labs/extraction-pipeline/internal/cache"
	"github.com/portfolio-labs/extraction-pipeline/internal/common"
	"github.com/portfolio-labs/extraction-pipeline/internal/coordinator"
	"github.com/portfolio-labs/extraction-pipeline/internal/dedup"
	"github.com/portfolio-labs/extraction-pipeline/internal/filter"
	"github.com/portfolio-labs/extraction-pipeline/internal/model"
	"github.com/portfolio-labs/extraction-pipeline/internal/oracle"
	"github.com/portfolio-labs/extraction-pipeline/internal/segment"
)

// Config aggregates the per-stage tuning. Zero values default inside each
// stage constructor.
type Config struct {
	Segmenter   segment.Config
	Classifier  segment.ClassifierConfig
	Coordinator coordinator.Config
	Filter      filter.Config
	Dedup       dedup.Config
}

// Options are the per-run knobs.
type Options struct {
	FastMode    bool
	Language    string
	UserContext string
	// MaxConcurrency overrides the configured worker bound when > 0.
	MaxConcurrency int
	// SimilarityThreshold overrides the dedup threshold when > 0.
	SimilarityThreshold float64
}

// RunRecorder persists run summaries. Satisfied by cache.SQLiteStore.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec cache.RunRecord) error
}

// Pipeline is the extraction entry point.
type Pipeline struct {
	cfg       Config
	extractor oracle.Extractor
	cache     *cache.MultiTier // nil disables caching
	runs      RunRecorder      // nil skips run records
	logger    *slog.Logger
}

// New builds a Pipeline. cache and runs may be nil.
func New(cfg Config, extractor oracle.Extractor, c *cache.MultiTier, runs RunRecorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Classifier.IsZero() {
		cfg.Classifier = segment.DefaultClassifierConfig()
	}
	return &Pipeline{cfg: cfg, extractor: extractor, cache: c, runs: runs, logger: logger}
}

// Run processes one document end to end.
func (p *Pipeline) Run(ctx context.Context, doc model.Document, opts Options) (model.PipelineResult, error) {
	runID := uuid.NewString()
	ctx = common.WithRunID(ctx, runID)
	start := time.Now()

	p.logger.Info("pipeline.run.start",
		"run_id", runID,
		"filename", doc.Filename,
		"chars", len(doc.Text),
		"fast_mode", opts.FastMode,
	)

	res := model.PipelineResult{TotalChars: len(doc.Text)}

	cls := segment.Classify(doc.Text, p.cfg.Classifier)
	isTable := doc.TableHint || cls.IsTable

	chunks, segNotes, err := segment.NewSegmenter(p.cfg.Segmenter).Split(doc.Text, isTable)
	if err != nil {
		res.Notes = append(res.Notes, fmt.Sprintf("segmentation failed: %v", err))
		p.logger.Warn("pipeline.segment.failed", "run_id", runID, "error", err)
		return res, common.WrapError(err, "segmenting document")
	}
	res.Notes = append(res.Notes, segNotes...)

	coordCfg := p.cfg.Coordinator
	if opts.MaxConcurrency > 0 {
		coordCfg.MaxConcurrency = opts.MaxConcurrency
	}
	// Per-call options win; document metadata from the parser is the fallback.
	lang := opts.Language
	if lang == "" {
		lang = doc.Language
	}
	userCtx := opts.UserContext
	if userCtx == "" {
		userCtx = doc.UserContext
	}
	coord := coordinator.New(coordCfg, p.extractor, p.cache, p.logger)
	chunkResults := coord.ProcessChunks(ctx, chunks, coordinator.Options{
		FastMode:    opts.FastMode,
		Language:    lang,
		UserContext: userCtx,
	})

	items, notes := aggregate(chunkResults)
	res.Notes = append(res.Notes, notes...)
	res.ChunksProcessed = len(chunkResults)
	rawCount := len(items)

	if rawCount == 0 {
		items = ExtractHeuristic(doc.Text)
		if len(items) > 0 {
			res.Notes = append(res.Notes, fmt.Sprintf("no items extracted; heuristic line scan recovered %d", len(items)))
			p.logger.Warn("pipeline.fallback.heuristic", "run_id", runID, "items", len(items))
		}
	}

	filtered, droppedNames := filter.New(p.cfg.Filter, p.logger).Apply(items)
	if n := len(droppedNames); n > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("filtered %d noise items", n))
	}

	dedupCfg := p.cfg.Dedup
	if opts.SimilarityThreshold > 0 {
		dedupCfg.SimilarityThreshold = opts.SimilarityThreshold
	}
	engine := dedup.New(dedupCfg, p.logger)
	deduped, removed := engine.Dedupe(filtered)
	if removed > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("merged %d duplicate items (%s)", removed, engine.Describe(len(filtered))))
	}

	res.Items = deduped
	res.Confidence = confidence(doc.ColumnSignal, len(items), len(items)-len(deduped))
	res.Success = len(deduped) > 0

	p.record(ctx, runID, doc.Filename, res, time.Since(start))

	p.logger.Info("pipeline.run.done",
		"run_id", runID,
		"success", res.Success,
		"items", len(res.Items),
		"chunks", res.ChunksProcessed,
		"confidence", res.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if !res.Success {
		return res, common.WrapError(common.ErrNoItems, "document yielded no items")
	}
	return res, nil
}

// confidence derives the run-level score: higher when the source carried
// an explicit item column, lowered when filtering and deduplication
// discarded a large share of the raw output.
func confidence(columnSignal bool, rawCount, removed int) float64 {
	score := 0.6
	if columnSignal {
		score = 0.9
	}
	if rawCount > 0 {
		frac := float64(removed) / float64(rawCount)
		switch {
		case frac > 0.5:
			score -= 0.25
		case frac > 0.25:
			score -= 0.1
		}
	}
	if score < 0.05 {
		score = 0.05
	}
	return score
}

// record persists the run summary when a recorder is configured.
func (p *Pipeline) record(ctx context.Context, runID, filename string, res model.PipelineResult, elapsed time.Duration) {
	if p.runs == nil {
		p.logger.Debug("pipeline.run_record.skipped", "run_id", runID)
		return
	}
	notesJSON, err := json.Marshal(res.Notes)
	if err != nil {
		notesJSON = []byte("[]")
	}
	rec := cache.RunRecord{
		ID:         runID,
		Filename:   filename,
		Chunks:     res.ChunksProcessed,
		Items:      len(res.Items),
		Confidence: res.Confidence,
		Elapsed:    elapsed,
		NotesJSON:  string(notesJSON),
	}
	if err := p.runs.RecordRun(ctx, rec); err != nil {
		p.logger.Warn("pipeline.run_record.failed", "run_id", runID, "error", err)
	}
}
