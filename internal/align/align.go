// Package align builds multi-channel snapshots at a reference timestamp
// from asynchronous per-channel sample windows.
package align

import (
	"sort"

	"github.com/fathomio/fathom-core/internal/window"
)

// Strategy selects how a per-channel value is derived at a reference
// timestamp.
type Strategy int

const (
	// SampleAndHold takes the latest sample with ts <= t_ref (default).
	SampleAndHold Strategy = iota
	// Nearest takes the sample with the smallest |ts - t_ref|, tying to
	// the earlier sample.
	Nearest
	// LinearInterpolation requires samples bracketing t_ref.
	LinearInterpolation
)

// MissingPolicy controls how a snapshot is formed when not every channel
// has a value at t_ref.
type MissingPolicy struct {
	Kind        MissingKind
	MinChannels int // used when Kind == MissingAllowPartial
}

type MissingKind int

const (
	MissingDrop MissingKind = iota
	MissingAllowPartial
	MissingFillLastKnown
)

// Snapshot is one aligned row: one value per present channel, plus the
// reference timestamp. Missing channels are simply absent from Values.
type Snapshot struct {
	TimestampMs uint64
	Values      map[string]float64
}

// lastKnown tracks, for FillWithLastKnown, the most recent value ever
// observed per channel regardless of window eviction.
type lastKnown map[string]float64

// Align produces a single snapshot at tRef for the given channels, reading
// from w. lastSeen may be nil; when non-nil and the policy is
// MissingFillLastKnown, it is both read and updated in place.
func Align(w *window.Window, channelIDs []string, tRef uint64, strategy Strategy, policy MissingPolicy, lastSeen lastKnown) (Snapshot, bool) {
	values := make(map[string]float64, len(channelIDs))
	present := 0

	for _, ch := range channelIDs {
		samples := w.Samples(ch)
		v, ok := alignOne(samples, tRef, strategy)
		if ok {
			values[ch] = v
			present++
			if lastSeen != nil {
				lastSeen[ch] = v
			}
			continue
		}
		if policy.Kind == MissingFillLastKnown && lastSeen != nil {
			if lv, ok := lastSeen[ch]; ok {
				values[ch] = lv
				present++
			}
		}
	}

	switch policy.Kind {
	case MissingDrop:
		if present != len(channelIDs) {
			return Snapshot{}, false
		}
	case MissingAllowPartial:
		if present < policy.MinChannels {
			return Snapshot{}, false
		}
	case MissingFillLastKnown:
		if present == 0 {
			return Snapshot{}, false
		}
	}

	return Snapshot{TimestampMs: tRef, Values: values}, true
}

// alignOne resolves a single channel's value at tRef. Always returns
// missing when tRef precedes every sample, for every strategy.
func alignOne(samples []window.Sample, tRef uint64, strategy Strategy) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	switch strategy {
	case SampleAndHold:
		// Latest sample with ts <= tRef.
		best := -1
		for i, s := range samples {
			if s.TimestampMs <= tRef {
				best = i
			} else {
				break
			}
		}
		if best == -1 {
			return 0, false
		}
		return samples[best].Value, true

	case Nearest:
		bestIdx := -1
		var bestDist uint64
		for i, s := range samples {
			var d uint64
			if s.TimestampMs >= tRef {
				d = s.TimestampMs - tRef
			} else {
				d = tRef - s.TimestampMs
			}
			if bestIdx == -1 || d < bestDist {
				bestIdx, bestDist = i, d
			} else if d == bestDist && s.TimestampMs < samples[bestIdx].TimestampMs {
				bestIdx = i // tie-break to earlier
			}
		}
		if bestIdx == -1 {
			return 0, false
		}
		return samples[bestIdx].Value, true

	case LinearInterpolation:
		// Find i such that samples[i].ts <= tRef < samples[i+1].ts.
		var lo, hi = -1, -1
		for i, s := range samples {
			if s.TimestampMs <= tRef {
				lo = i
			}
			if s.TimestampMs >= tRef && hi == -1 {
				hi = i
			}
		}
		if lo == -1 || hi == -1 {
			return 0, false // no bracket on one side: missing
		}
		if lo == hi {
			return samples[lo].Value, true // exact hit
		}
		s0, s1 := samples[lo], samples[hi]
		if s1.TimestampMs == s0.TimestampMs {
			return s0.Value, true
		}
		frac := float64(tRef-s0.TimestampMs) / float64(s1.TimestampMs-s0.TimestampMs)
		return s0.Value + (s1.Value-s0.Value)*frac, true
	}
	return 0, false
}

// NewLastKnown creates the map used to track FillWithLastKnown state across
// calls to Align.
func NewLastKnown() lastKnown { return make(lastKnown) }

// Stride computes the batch alignment stride: the smallest positive gap
// between consecutive samples observed across channelIDs' windows, or
// defaultMs if fewer than two samples exist anywhere.
func Stride(w *window.Window, channelIDs []string, defaultMs uint64) uint64 {
	best := uint64(0)
	found := false
	for _, ch := range channelIDs {
		samples := w.Samples(ch)
		for i := 1; i < len(samples); i++ {
			gap := samples[i].TimestampMs - samples[i-1].TimestampMs
			if gap == 0 {
				continue
			}
			if !found || gap < best {
				best, found = gap, true
			}
		}
	}
	if !found {
		return defaultMs
	}
	return best
}

// Batch produces a sequence of snapshots spanning [startMs, endMs] at the
// given stride, one aligned row per tick. A flush therefore yields a batch
// of rows spanning the window, not a single row at the flush timestamp.
func Batch(w *window.Window, channelIDs []string, startMs, endMs, strideMs uint64, strategy Strategy, policy MissingPolicy) []Snapshot {
	if strideMs == 0 {
		strideMs = 1
	}
	sortedChannels := append([]string(nil), channelIDs...)
	sort.Strings(sortedChannels)

	lastSeen := NewLastKnown()
	var out []Snapshot
	for t := startMs; t <= endMs; t += strideMs {
		snap, ok := Align(w, sortedChannels, t, strategy, policy, lastSeen)
		if ok {
			out = append(out, snap)
		}
	}
	return out
}
