package dedup

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
)

// minHasher computes fixed-length MinHash signatures over k-character
// shingles. Signatures estimate Jaccard similarity: the fraction of
// matching slots converges on the true set similarity as the signature
// grows.
type minHasher struct {
	a, b []uint64
	k    int
}

// newMinHasher builds numHash hash functions from a fixed seed so
// signatures are reproducible across runs.
func newMinHasher(numHash, shingleSize int) *minHasher {
	rng := rand.New(rand.NewSource(0x5eed))
	m := &minHasher{
		a: make([]uint64, numHash),
		b: make([]uint64, numHash),
		k: shingleSize,
	}
	for i := 0; i < numHash; i++ {
		m.a[i] = rng.Uint64() | 1 // odd multiplier
		m.b[i] = rng.Uint64()
	}
	return m
}

// signature computes the MinHash signature of text's shingle set.
func (m *minHasher) signature(text string) []uint64 {
	sig := make([]uint64, len(m.a))
	for i := range sig {
		sig[i] = ^uint64(0)
	}

	runes := []rune(text)
	if len(runes) < m.k {
		runes = append(runes, make([]rune, m.k-len(runes))...)
	}
	seen := make(map[string]struct{}, len(runes))
	for i := 0; i+m.k <= len(runes); i++ {
		sh := string(runes[i : i+m.k])
		if _, dup := seen[sh]; dup {
			continue
		}
		seen[sh] = struct{}{}

		h := fnv.New64a()
		_, _ = h.Write([]byte(sh))
		base := h.Sum64()
		for j := range sig {
			if v := m.a[j]*base + m.b[j]; v < sig[j] {
				sig[j] = v
			}
		}
	}
	return sig
}

// sigSimilarity is the Jaccard estimate: the fraction of matching slots.
func sigSimilarity(a, b []uint64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	match := 0
	for i := range a {
		if a[i] == b[i] {
			match++
		}
	}
	return float64(match) / float64(len(a))
}

// bandKey hashes one signature band into its LSH bucket key.
func bandKey(band int, slots []uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(band))
	_, _ = h.Write(buf[:])
	for _, s := range slots {
		binary.LittleEndian.PutUint64(buf[:], s)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
