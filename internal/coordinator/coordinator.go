// Package coordinator runs chunk extraction calls under bounded
// concurrency, with per-call deadlines, fast-tier fallback on timeout,
// bounded retries, and malformed-response recovery. One chunk's failure
// never affects sibling chunks; the batch always completes with a result
// for every chunk.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/portfolio-labs/extraction-pipeline/constants"
	"github.com/portfolio-labs/extraction-pipeline/internal/cache"
	"github.com/portfolio-labs/extraction-pipeline/internal/common"
	"github.com/portfolio-labs/extraction-pipeline/internal/model"
	"github.com/portfolio-labs/extraction-pipeline/internal/oracle"
	"github.com/portfolio-labs/extraction-pipeline/internal/router"
)

// Config holds coordinator tuning.
type Config struct {
	MaxConcurrency int
	// CallTimeout is the primary-call deadline; fallback calls carry none.
	CallTimeout time.Duration
	MaxRetries  int
	// MaxOrphans caps abandoned timed-out calls still in flight. Past the
	// cap, calls run with real cancellation instead of being abandoned.
	MaxOrphans int
	CacheTTL   time.Duration
	Router     router.Config
}

// Options are the per-run knobs threaded through from the pipeline entry.
type Options struct {
	FastMode    bool
	Language    string
	UserContext string
}

// Coordinator is the concurrent extraction orchestrator.
type Coordinator struct {
	cfg       Config
	extractor oracle.Extractor
	cache     *cache.MultiTier // nil disables caching
	logger    *slog.Logger

	orphans atomic.Int64
}

// New builds a Coordinator, defaulting zero-valued config fields.
func New(cfg Config, extractor oracle.Extractor, c *cache.MultiTier, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = constants.MaxConcurrency
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = constants.CallTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = constants.MaxRetries
	}
	if cfg.MaxOrphans <= 0 {
		cfg.MaxOrphans = constants.MaxOrphanCalls
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = constants.CacheTTL
	}
	if cfg.Router == (router.Config{}) {
		cfg.Router = router.DefaultConfig()
	}
	return &Coordinator{cfg: cfg, extractor: extractor, cache: c, logger: logger}
}

// cachedResult is the serialized cache payload for one chunk extraction.
type cachedResult struct {
	Items []model.RawItem `json:"items"`
	Model string          `json:"model"`
}

// ProcessChunks runs every chunk under the concurrency bound and returns
// one result per chunk, ordered by chunk index regardless of completion
// order.
func (c *Coordinator) ProcessChunks(ctx context.Context, chunks []model.Chunk, opts Options) []model.ChunkResult {
	results := make([]model.ChunkResult, len(chunks))

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.MaxConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			results[i] = c.processChunk(ctx, chunk, opts)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].ChunkIndex < results[b].ChunkIndex })
	return results
}

// processChunk drives one chunk through its state machine:
// pending → in-flight → succeeded | timed-out → fallback-in-flight |
// error → retrying. Terminal failures return an empty item list plus a
// note, never an error.
func (c *Coordinator) processChunk(ctx context.Context, chunk model.Chunk, opts Options) model.ChunkResult {
	start := time.Now()
	res := model.ChunkResult{ChunkIndex: chunk.Index}

	logger := c.logger
	if rid := common.RunIDFromContext(ctx); rid != "" {
		logger = logger.With("run_id", rid)
	}

	template := oracle.TemplateFreeText
	if chunk.IsTableHint {
		template = oracle.TemplateTableRows
	}
	namespace := "extract:" + string(template)

	// Cache first; a hit skips routing and the oracle entirely.
	if c.cache != nil {
		if b, ok := c.cache.Get(ctx, namespace, chunk.Text); ok {
			var cr cachedResult
			if err := json.Unmarshal(b, &cr); err == nil {
				res.Items = cr.Items
				res.ModelUsed = cr.Model
				res.Notes = append(res.Notes, "cache hit")
				res.Elapsed = time.Since(start)
				logger.Debug("coordinator.chunk.cache_hit", "chunk", chunk.Index, "items", len(cr.Items))
				return res
			}
			logger.Warn("coordinator.chunk.cache_corrupt", "chunk", chunk.Index, "error", "undecodable entry")
		}
	}

	decision := router.SelectTier(chunk.Text, chunk.IsTableHint, opts.FastMode, c.cfg.Router)
	req := oracle.Request{
		Template:    template,
		Text:        chunk.Text,
		Tier:        decision.Tier,
		Language:    opts.Language,
		UserContext: opts.UserContext,
	}
	// One request ID spans the primary call, its fallback, and retries, so
	// oracle log lines for the same chunk correlate.
	reqID := uuid.NewString()
	ctx = common.WithRequestID(ctx, reqID)
	logger.Info("coordinator.chunk.start",
		"chunk", chunk.Index, "req_id", reqID, "tier", string(decision.Tier), "reason", decision.Reason)

	raw, modelUsed, notes, err := c.callWithRecovery(ctx, req)
	res.Notes = append(res.Notes, notes...)
	res.ModelUsed = modelUsed
	if err != nil {
		res.Notes = append(res.Notes, fmt.Sprintf("extraction failed: %v", err))
		res.Elapsed = time.Since(start)
		logger.Warn("coordinator.chunk.failed", "chunk", chunk.Index, "error", err)
		return res
	}

	items, parseNotes, perr := oracle.ParseItems(raw, c.logger)
	res.Notes = append(res.Notes, parseNotes...)
	if perr != nil {
		res.Notes = append(res.Notes, "response unrecoverable; chunk yields no items")
		res.Elapsed = time.Since(start)
		logger.Warn("coordinator.chunk.malformed", "chunk", chunk.Index, "error", perr)
		return res
	}
	res.Items = items

	if c.cache != nil {
		if b, err := json.Marshal(cachedResult{Items: items, Model: modelUsed}); err == nil {
			c.cache.Set(ctx, namespace, chunk.Text, b, c.cfg.CacheTTL)
		}
	}

	res.Elapsed = time.Since(start)
	logger.Info("coordinator.chunk.ok",
		"chunk", chunk.Index, "items", len(items), "model", modelUsed,
		"elapsed_ms", res.Elapsed.Milliseconds())
	return res
}

// callWithRecovery runs the primary deadline-bound call, the fast-tier
// fallback on timeout, and the bounded retry loop on oracle errors.
func (c *Coordinator) callWithRecovery(ctx context.Context, req oracle.Request) (raw, modelUsed string, notes []string, err error) {
	modelUsed = string(req.Tier)

	raw, err = c.callWithDeadline(ctx, req)
	if err == nil {
		return raw, modelUsed, notes, nil
	}

	if errors.Is(err, common.ErrExtractionTimeout) {
		// The original call is abandoned, not cancelled; its eventual
		// result is discarded by the orphan watcher.
		notes = append(notes, fmt.Sprintf("timeout on %s tier; used fast-tier fallback", req.Tier))
		fb := req
		fb.Tier = router.TierFast
		raw, ferr := c.extractor.Extract(ctx, fb)
		if ferr != nil {
			return "", string(fb.Tier), notes, fmt.Errorf("fallback after timeout: %w", ferr)
		}
		return raw, string(fb.Tier), notes, nil
	}
	if ctx.Err() != nil {
		return "", modelUsed, notes, ctx.Err()
	}

	// Oracle-level error: bounded retries on the accurate tier.
	retry := req
	retry.Tier = router.TierAccurate
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		c.logger.Warn("coordinator.chunk.retry", "attempt", attempt, "error", err)
		raw, err = c.callWithDeadline(ctx, retry)
		if err == nil {
			notes = append(notes, fmt.Sprintf("succeeded on retry %d (accurate tier)", attempt))
			return raw, string(retry.Tier), notes, nil
		}
		if errors.Is(err, common.ErrExtractionTimeout) || ctx.Err() != nil {
			break
		}
	}
	return "", string(retry.Tier), notes, fmt.Errorf("%w: %v", common.ErrExtraction, err)
}

// callWithDeadline enforces the per-call timeout. The transport is treated
// as non-cancellable: on expiry the call is abandoned and its result
// discarded when it eventually resolves. Once MaxOrphans calls are in
// flight, further calls switch to real context cancellation so orphaned
// memory stays bounded.
func (c *Coordinator) callWithDeadline(ctx context.Context, req oracle.Request) (string, error) {
	if c.orphans.Load() >= int64(c.cfg.MaxOrphans) {
		cctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
		raw, err := c.extractor.Extract(cctx, req)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", common.ErrExtractionTimeout
		}
		return raw, err
	}

	type outcome struct {
		raw string
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		raw, err := c.extractor.Extract(ctx, req)
		ch <- outcome{raw: raw, err: err}
	}()

	timer := time.NewTimer(c.cfg.CallTimeout)
	defer timer.Stop()
	select {
	case o := <-ch:
		return o.raw, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		c.orphans.Add(1)
		go func() {
			o := <-ch // discard; only the fact of resolution is logged
			c.orphans.Add(-1)
			c.logger.Debug("coordinator.orphan.resolved", "errored", o.err != nil, "bytes", len(o.raw))
		}()
		return "", common.ErrExtractionTimeout
	}
}

// Orphans reports currently abandoned in-flight calls, for diagnostics.
func (c *Coordinator) Orphans() int64 {
	return c.orphans.Load()
}
