// Package structure computes S-lite: a sparsified pairwise
// channel-similarity edge set derived from per-channel entropy, and
// detects structural breaks against the previous cycle's edge set.
package structure

import (
	"math"
	"sort"
)

// Config controls channel cap, sparsification, and break detection.
type Config struct {
	MaxChannels     int
	SparsifyEnabled bool
	TopKEdges       int     // default 64
	MinAbsWeight    float64 // default 0.2
	DetectBreaks    bool
	BreakThreshold  float64 // default 0.3
}

// DefaultConfig returns the default structure-summary settings.
func DefaultConfig() Config {
	return Config{
		MaxChannels:     32,
		SparsifyEnabled: true,
		TopKEdges:       64,
		MinAbsWeight:    0.2,
		DetectBreaks:    true,
		BreakThreshold:  0.3,
	}
}

// Edge is one channel-pair similarity weight.
type Edge struct {
	A, B   string
	Weight float64
}

const weightEps = 1e-12

// Compute builds the similarity edge set over the top MaxChannels channels
// ranked by entropy, sparsifies it, and compares against prev to detect a
// structure break.
func Compute(hPerChannel map[string]float64, cfg Config, prev []Edge) (edges []Edge, brokeStructure bool) {
	ids := topChannelsByEntropy(hPerChannel, cfg.MaxChannels)

	all := make([]Edge, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			hi, hj := hPerChannel[ids[i]], hPerChannel[ids[j]]
			denom := maxF(hi, hj, weightEps)
			w := 1 - math.Abs(hi-hj)/denom
			all = append(all, Edge{A: ids[i], B: ids[j], Weight: w})
		}
	}

	filtered := all
	if cfg.SparsifyEnabled {
		filtered = sparsify(all, cfg.MinAbsWeight, cfg.TopKEdges)
	}

	if cfg.DetectBreaks {
		brokeStructure = detectBreak(filtered, prev, cfg.BreakThreshold)
	}
	return filtered, brokeStructure
}

func topChannelsByEntropy(h map[string]float64, maxChannels int) []string {
	ids := make([]string, 0, len(h))
	for id := range h {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if h[ids[i]] != h[ids[j]] {
			return h[ids[i]] > h[ids[j]]
		}
		return ids[i] < ids[j] // deterministic tie-break
	})
	if maxChannels > 0 && len(ids) > maxChannels {
		ids = ids[:maxChannels]
	}
	return ids
}

func sparsify(edges []Edge, minAbsWeight float64, topK int) []Edge {
	kept := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if math.Abs(e.Weight) >= minAbsWeight {
			kept = append(kept, e)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		return math.Abs(kept[i].Weight) > math.Abs(kept[j].Weight)
	})
	if topK > 0 && len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

func edgeKey(a, b string) string {
	if a < b {
		return a + "\x00" + b
	}
	return b + "\x00" + a
}

// detectBreak signals a break when either the mean |Δw| over edges present
// in both cycles exceeds threshold, or the symmetric-difference edge
// fraction exceeds the same threshold.
func detectBreak(cur, prev []Edge, threshold float64) bool {
	if len(prev) == 0 {
		return false
	}

	curByKey := make(map[string]float64, len(cur))
	for _, e := range cur {
		curByKey[edgeKey(e.A, e.B)] = e.Weight
	}
	prevByKey := make(map[string]float64, len(prev))
	for _, e := range prev {
		prevByKey[edgeKey(e.A, e.B)] = e.Weight
	}

	var sumAbsDelta float64
	var intersecting int
	for key, w := range curByKey {
		if pw, ok := prevByKey[key]; ok {
			sumAbsDelta += math.Abs(w - pw)
			intersecting++
		}
	}

	union := make(map[string]bool, len(curByKey)+len(prevByKey))
	for key := range curByKey {
		union[key] = true
	}
	for key := range prevByKey {
		union[key] = true
	}
	symDiff := 0
	for key := range union {
		_, inCur := curByKey[key]
		_, inPrev := prevByKey[key]
		if inCur != inPrev {
			symDiff++
		}
	}

	meanAbsDelta := 0.0
	if intersecting > 0 {
		meanAbsDelta = sumAbsDelta / float64(intersecting)
	}
	symDiffFraction := 0.0
	if len(union) > 0 {
		symDiffFraction = float64(symDiff) / float64(len(union))
	}

	return meanAbsDelta > threshold || symDiffFraction > threshold
}

func maxF(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
