package complexity

import (
	"github.com/fathomio/fathom-core/internal/anomaly"
	"github.com/fathomio/fathom-core/internal/baseline"
	"github.com/fathomio/fathom-core/internal/delta"
	"github.com/fathomio/fathom-core/internal/structure"
)

// Config aggregates every Complexity-layer knob: baseline, deltas,
// structure, anomaly, and output cadence.
type Config struct {
	Enabled bool

	Baseline baseline.Config

	ComputeTC             bool
	ComputeR              bool
	ComputeHJoint         bool
	ComputePayloadEntropy bool
	Delta                 delta.Config

	Structure structure.Config
	EmitSLite bool

	Anomaly anomaly.Config

	// Zone thresholds, duplicated from the Metrics layer's resilience
	// config since RedundancyDrop needs to classify R transitions without
	// importing the full resilience.Config shape.
	ZoneHealthyMin   float64
	ZoneAttentionMin float64

	OutputEveryNTicks    int
	EmitEvents           bool
	IncludeBaselineStats bool
}

// DefaultConfig returns working defaults across every sub-component.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		Baseline:              baseline.DefaultConfig(),
		ComputeTC:             true,
		ComputeR:              true,
		ComputeHJoint:         true,
		ComputePayloadEntropy: true,
		Delta:                 delta.DefaultConfig(),
		Structure:             structure.DefaultConfig(),
		EmitSLite:             true,
		Anomaly:               anomaly.DefaultConfig(),
		ZoneHealthyMin:        0.5,
		ZoneAttentionMin:      0.2,
		OutputEveryNTicks:     1,
		EmitEvents:            true,
		IncludeBaselineStats:  true,
	}
}
