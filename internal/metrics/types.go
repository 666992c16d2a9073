package metrics

import (
	"github.com/fathomio/fathom-core/internal/entropy"
	"github.com/fathomio/fathom-core/internal/resilience"
)

// Snapshot is the metrics-engine output: one cycle's signal, payload, and
// resilience metrics, assembled on a compute schedule.
type Snapshot struct {
	TimestampMs uint64

	HasSignal bool
	Signal    entropy.SignalMetrics

	HasPayload bool
	Payload    entropy.PayloadMetrics

	HasResilience bool
	Resilience    resilience.Metrics
}
