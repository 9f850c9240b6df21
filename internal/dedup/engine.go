// Package dedup merges duplicate items found across chunks. Exact
// duplicates (identical normalized names) merge in O(n); fuzzy duplicates
// merge by Jaro–Winkler comparison, brute force below a size cutover and
// MinHash/LSH candidate generation above it. LSH trades a small
// false-negative rate (near-duplicates missing every band by chance) for
// near-linear scaling.
package dedup

import (
	"fmt"
	"log/slog"

	"github.com/xrash/smetrics"

	"github.com/portfolio-labs/extraction-pipeline/constants"
	"github.com/portfolio-labs/extraction-pipeline/internal/model"
)

// Config holds the dedup tuning.
type Config struct {
	// SimilarityThreshold is intentionally strict so distinct product
	// variants are not merged.
	SimilarityThreshold float64
	// LSHCutover is the corpus size at which MinHash/LSH replaces the
	// O(n²) comparison.
	LSHCutover  int
	Bands       int
	Rows        int
	ShingleSize int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: constants.SimilarityThreshold,
		LSHCutover:          constants.LSHCutover,
		Bands:               constants.MinHashBands,
		Rows:                constants.MinHashRows,
		ShingleSize:         constants.ShingleSize,
	}
}

// Engine deduplicates an item corpus.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New builds an Engine, defaulting zero-valued config fields.
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = constants.SimilarityThreshold
	}
	if cfg.LSHCutover <= 0 {
		cfg.LSHCutover = constants.LSHCutover
	}
	if cfg.Bands <= 0 {
		cfg.Bands = constants.MinHashBands
	}
	if cfg.Rows <= 0 {
		cfg.Rows = constants.MinHashRows
	}
	if cfg.ShingleSize <= 0 {
		cfg.ShingleSize = constants.ShingleSize
	}
	return &Engine{cfg: cfg, logger: logger}
}

// cluster accumulates the indices merged into one canonical item.
type cluster struct {
	first   int // earliest input index, fixes output order
	indices []int
}

// Dedupe returns the corpus with duplicates merged, preserving first-seen
// order, plus the count removed.
func (e *Engine) Dedupe(items []model.RawItem) ([]model.RawItem, int) {
	if len(items) <= 1 {
		return items, 0
	}

	// Exact short-circuit: identical normalized names merge immediately,
	// independent of corpus size.
	norms := make([]string, len(items))
	byNorm := make(map[string]int, len(items))
	var clusters []*cluster
	for i, it := range items {
		norms[i] = Normalize(it.Name)
		if ci, ok := byNorm[norms[i]]; ok {
			clusters[ci].indices = append(clusters[ci].indices, i)
			continue
		}
		byNorm[norms[i]] = len(clusters)
		clusters = append(clusters, &cluster{first: i, indices: []int{i}})
	}

	// Fuzzy pass over cluster representatives.
	parent := make([]int, len(clusters))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if clusters[ra].first > clusters[rb].first {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	if len(clusters) < e.cfg.LSHCutover {
		e.bruteForce(clusters, norms, union)
	} else {
		e.lsh(items, clusters, union)
	}

	// Fold union-find roots into final clusters.
	merged := make(map[int]*cluster)
	var order []int
	for ci, cl := range clusters {
		root := find(ci)
		if mc, ok := merged[root]; ok {
			mc.indices = append(mc.indices, cl.indices...)
			if cl.first < mc.first {
				mc.first = cl.first
			}
		} else {
			cp := &cluster{first: cl.first, indices: append([]int(nil), cl.indices...)}
			merged[root] = cp
			order = append(order, root)
		}
	}

	out := make([]model.RawItem, 0, len(order))
	for _, root := range order {
		out = append(out, canonical(items, merged[root].indices))
	}
	removed := len(items) - len(out)
	if removed > 0 {
		e.logger.Debug("dedup.merged", "input", len(items), "output", len(out), "removed", removed)
	}
	return out, removed
}

// bruteForce compares every cluster pair by Jaro–Winkler over normalized
// names.
func (e *Engine) bruteForce(clusters []*cluster, norms []string, union func(a, b int)) {
	for a := 0; a < len(clusters); a++ {
		na := norms[clusters[a].first]
		for b := a + 1; b < len(clusters); b++ {
			nb := norms[clusters[b].first]
			if smetrics.JaroWinkler(na, nb, 0.7, 4) >= e.cfg.SimilarityThreshold {
				union(a, b)
			}
		}
	}
}

// lsh generates candidate pairs through banded MinHash signatures and
// compares only candidates, using the signature-match fraction as the
// similarity estimate.
func (e *Engine) lsh(items []model.RawItem, clusters []*cluster, union func(a, b int)) {
	hasher := newMinHasher(e.cfg.Bands*e.cfg.Rows, e.cfg.ShingleSize)
	sigs := make([][]uint64, len(clusters))
	for ci, cl := range clusters {
		it := items[cl.first]
		sigs[ci] = hasher.signature(Normalize(it.Name) + " " + Normalize(it.Description))
	}

	buckets := make(map[uint64][]int)
	for ci, sig := range sigs {
		for band := 0; band < e.cfg.Bands; band++ {
			key := bandKey(band, sig[band*e.cfg.Rows:(band+1)*e.cfg.Rows])
			buckets[key] = append(buckets[key], ci)
		}
	}

	checked := make(map[[2]int]struct{})
	for _, members := range buckets {
		if len(members) < 2 {
			continue
		}
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				a, b := members[x], members[y]
				if a > b {
					a, b = b, a
				}
				pair := [2]int{a, b}
				if _, done := checked[pair]; done {
					continue
				}
				checked[pair] = struct{}{}
				if sigSimilarity(sigs[a], sigs[b]) >= e.cfg.SimilarityThreshold {
					union(a, b)
				}
			}
		}
	}
}

// canonical picks the cluster survivor: the item carrying the most
// information, with missing scalar fields backfilled from the merged
// duplicates. Absent fields stay absent when no duplicate observed them.
func canonical(items []model.RawItem, indices []int) model.RawItem {
	best := indices[0]
	for _, i := range indices[1:] {
		if items[i].InfoWeight() > items[best].InfoWeight() {
			best = i
		}
	}
	out := items[best]
	for _, i := range indices {
		if i == best {
			continue
		}
		backfill(&out, items[i])
	}
	return out
}

func backfill(dst *model.RawItem, src model.RawItem) {
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.RawType == "" {
		dst.RawType = src.RawType
	}
	if dst.RawStatus == "" {
		dst.RawStatus = src.RawStatus
	}
	if dst.RawPriority == "" {
		dst.RawPriority = src.RawPriority
	}
	if dst.Budget == nil {
		dst.Budget = src.Budget
	}
	if dst.Owner == "" {
		dst.Owner = src.Owner
	}
	if dst.StartDate == "" {
		dst.StartDate = src.StartDate
	}
	if dst.EndDate == "" {
		dst.EndDate = src.EndDate
	}
	if len(dst.Technologies) == 0 {
		dst.Technologies = src.Technologies
	}
	if len(dst.Stakeholders) == 0 {
		dst.Stakeholders = src.Stakeholders
	}
	if len(dst.Dependencies) == 0 {
		dst.Dependencies = src.Dependencies
	}
	if len(dst.Risks) == 0 {
		dst.Risks = src.Risks
	}
	if len(dst.KPIs) == 0 {
		dst.KPIs = src.KPIs
	}
	if len(dst.RawData) == 0 {
		dst.RawData = src.RawData
	}
}

// Describe reports which strategy a corpus of n items uses, for run notes.
func (e *Engine) Describe(n int) string {
	if n < e.cfg.LSHCutover {
		return fmt.Sprintf("brute-force dedup over %d items", n)
	}
	return fmt.Sprintf("minhash/lsh dedup over %d items", n)
}
