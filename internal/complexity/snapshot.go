package complexity

import (
	"github.com/fathomio/fathom-core/internal/anomaly"
	"github.com/fathomio/fathom-core/internal/structure"
)

// BaselineStatus is either Building (progress reported as the valid
// snapshot count and elapsed time) or Locked.
type BaselineStatus struct {
	Locked bool

	// Populated only while Locked is false.
	ValidSnapshotsSeen int
	ElapsedMs          uint64
}

// SLite is the structure summary: the current sparsified edge set plus
// whether this cycle signaled a break.
type SLite struct {
	Edges []structure.Edge
	Break bool
}

// BaselineStat is one tracked metric's baseline summary, carried in
// snapshots when the output config asks for it.
type BaselineStat struct {
	Mean float64
	Std  float64
	N    int
}

// Snapshot is the ComplexityEngine output for one Process call.
type Snapshot struct {
	TimestampMs uint64

	BaselineStatus BaselineStatus

	HasDeltas bool
	Deltas    map[string]float64
	ZScores   map[string]float64

	SLite *SLite

	// BaselineStats is populated only after lock and only when
	// IncludeBaselineStats is configured.
	BaselineStats map[string]BaselineStat

	Events []anomaly.Event
}
