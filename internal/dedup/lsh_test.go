package dedup

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-labs/extraction-pipeline/internal/model"
)

// syntheticCorpus builds n base items plus pairs near-duplicates, each
// duplicate differing from its base by one appended character. Long names
// keep the pairwise similarity well above the merge threshold for both
// strategies, so misses come only from the banding false-negative rate.
func syntheticCorpus(n, pairs int, rng *rand.Rand) []model.RawItem {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	items := make([]model.RawItem, 0, n+pairs)
	for i := 0; i < n; i++ {
		name := make([]byte, 0, 310)
		for w := 0; w < 30; w++ {
			if w > 0 {
				name = append(name, ' ')
			}
			for c := 0; c < 9; c++ {
				name = append(name, alphabet[rng.Intn(len(alphabet))])
			}
		}
		items = append(items, model.RawItem{
			Name:        fmt.Sprintf("%s %03d", string(name), i),
			Description: "synthetic entry",
		})
	}
	for p := 0; p < pairs; p++ {
		dup := items[p]
		dup.Name = dup.Name + "x"
		items = append(items, dup)
	}
	return items
}

func TestBruteForceFindsPlantedPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	items := syntheticCorpus(450, 50, rng)
	require.Len(t, items, 500)

	cfg := DefaultConfig()
	cfg.LSHCutover = 100000 // keep the O(n²) path
	out, removed := New(cfg, nil).Dedupe(items)

	assert.GreaterOrEqual(t, removed, 45, "brute force misses too many planted pairs")
	assert.LessOrEqual(t, removed, 55, "brute force merges unrelated items")
	assert.Equal(t, len(items)-removed, len(out))
}

func TestLSHFindsPlantedPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	items := syntheticCorpus(450, 50, rng)

	cfg := DefaultConfig()
	cfg.LSHCutover = 1 // force the banded path
	out, removed := New(cfg, nil).Dedupe(items)

	assert.GreaterOrEqual(t, removed, 45, "lsh misses too many planted pairs")
	assert.LessOrEqual(t, removed, 55, "lsh merges unrelated items")
	assert.Equal(t, len(items)-removed, len(out))
}

// The two strategies agree on the same corpus to within the LSH
// false-negative allowance.
func TestStrategiesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	items := syntheticCorpus(200, 30, rng)

	brute := DefaultConfig()
	brute.LSHCutover = 100000
	_, bruteRemoved := New(brute, nil).Dedupe(items)

	banded := DefaultConfig()
	banded.LSHCutover = 1
	_, lshRemoved := New(banded, nil).Dedupe(items)

	assert.InDelta(t, bruteRemoved, lshRemoved, 3)
}

func TestDescribe(t *testing.T) {
	e := New(Config{}, nil)
	assert.Contains(t, e.Describe(10), "brute")
	assert.Contains(t, e.Describe(5000), "lsh")
}
