// Package complexity wires Baseline, Delta, Structure, and AnomalyDetector
// together into the ComplexityEngine: baseline accumulation, delta and
// z-score computation, the S-lite structure summary, and anomaly detection.
package complexity

// ChannelEntropy is one channel's entropy value, used for structure
// analysis.
type ChannelEntropy struct {
	ChannelID string
	H         float64
}

// InputSnapshot is the unified shape ComplexityEngine consumes, decoupled
// from whichever upstream produced it.
type InputSnapshot struct {
	TimestampMs uint64

	TC     *float64
	HJoint *float64
	HBytes float64
	R      *float64

	ChannelEntropies []ChannelEntropy
	Source           string
}

// HasSignalMetrics reports whether both TC and HJoint are present.
func (s InputSnapshot) HasSignalMetrics() bool {
	return s.TC != nil && s.HJoint != nil
}

// HasResilience reports whether R is present.
func (s InputSnapshot) HasResilience() bool {
	return s.R != nil
}

// CanComputeStructure reports whether enough channels are present to build
// a similarity edge set.
func (s InputSnapshot) CanComputeStructure() bool {
	return len(s.ChannelEntropies) >= 2
}

// Minimal creates an InputSnapshot carrying only payload entropy.
func Minimal(timestampMs uint64, hBytes float64) InputSnapshot {
	return InputSnapshot{TimestampMs: timestampMs, HBytes: hBytes, Source: "minimal"}
}

// InputAdapter converts a source-specific representation into the unified
// InputSnapshot shape ComplexityEngine consumes.
type InputAdapter interface {
	ToInputSnapshot() InputSnapshot
}

func floatPtr(f float64) *float64 { return &f }
