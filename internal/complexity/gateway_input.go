package complexity

import "github.com/fathomio/fathom-core/internal/metrics"

// GatewayAdapter converts a MetricsEngine Snapshot into the unified
// InputSnapshot ComplexityEngine consumes.
type GatewayAdapter struct {
	snapshot *metrics.Snapshot
}

// NewGatewayAdapter wraps a metrics.Snapshot for conversion.
func NewGatewayAdapter(snapshot *metrics.Snapshot) GatewayAdapter {
	return GatewayAdapter{snapshot: snapshot}
}

// ToInputSnapshot implements InputAdapter.
func (a GatewayAdapter) ToInputSnapshot() InputSnapshot {
	snap := a.snapshot

	var entropies []ChannelEntropy
	var tc, hJoint *float64
	if snap.HasSignal && snap.Signal.Valid {
		entropies = make([]ChannelEntropy, 0, len(snap.Signal.ChannelOrder))
		for _, ch := range snap.Signal.ChannelOrder {
			entropies = append(entropies, ChannelEntropy{ChannelID: ch, H: snap.Signal.HMarginal[ch]})
		}
		tc = floatPtr(snap.Signal.TC)
		hJoint = floatPtr(snap.Signal.HJoint)
	}

	var r *float64
	if snap.HasResilience && snap.Resilience.Valid {
		r = floatPtr(snap.Resilience.R)
	}

	hBytes := 0.0
	if snap.HasPayload {
		hBytes = snap.Payload.FrameEntropy
	}

	return InputSnapshot{
		TimestampMs:      snap.TimestampMs,
		TC:               tc,
		HJoint:           hJoint,
		HBytes:           hBytes,
		R:                r,
		ChannelEntropies: entropies,
		Source:           "fathom-gateway",
	}
}

// ToComplexityInput mirrors the extension-trait convenience method: any
// caller holding a *metrics.Snapshot can get an InputSnapshot directly.
func ToComplexityInput(snap *metrics.Snapshot) InputSnapshot {
	return NewGatewayAdapter(snap).ToInputSnapshot()
}
