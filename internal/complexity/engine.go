package complexity

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/fathomio/fathom-core/internal/anomaly"
	"github.com/fathomio/fathom-core/internal/baseline"
	"github.com/fathomio/fathom-core/internal/delta"
	"github.com/fathomio/fathom-core/internal/resilience"
	"github.com/fathomio/fathom-core/internal/structure"
)

const (
	keyTC     = "tc"
	keyHJoint = "h_joint"
	keyR      = "r"
	keyHBytes = "h_bytes"
)

func channelKey(id string) string { return "h_chan_" + id }

// TrackedMetricKeys returns the full set of baseline metric keys this
// engine accumulates: the four fixed signal/resilience/payload keys plus
// one per channel id in channelIDs. Exposed so a caller persisting the
// locked baseline (e.g. cmd/fathomctl) knows which keys to read via
// BaselineStat without reaching into engine internals.
func TrackedMetricKeys(channelIDs []string) []string {
	keys := []string{keyTC, keyHJoint, keyR, keyHBytes}
	for _, id := range channelIDs {
		keys = append(keys, channelKey(id))
	}
	return keys
}

// Engine is the ComplexityEngine: it owns the baseline accumulator, delta
// tracker, structure summary, and anomaly detector, and turns each
// InputSnapshot into a Snapshot with zero or more events.
type Engine struct {
	cfg Config
	log *zap.Logger

	baselineState *baseline.Baseline
	deltaTracker  *delta.Tracker
	detector      *anomaly.Detector

	lastEdges       []structure.Edge
	prevZone        resilience.Zone
	hasPrevZone     bool
	prevTopCritical string
	hasPrevCritical bool
	tickCount       int
}

// New creates a ComplexityEngine.
func New(cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:           cfg,
		log:           log,
		baselineState: baseline.New(cfg.Baseline),
		deltaTracker:  delta.NewTracker(cfg.Delta),
		detector:      anomaly.New(cfg.Anomaly),
	}
}

// BaselineLocked reports whether the baseline accumulator has locked.
func (e *Engine) BaselineLocked() bool { return e.baselineState.Locked() }

// BaselineLockedAtMs returns the timestamp the baseline locked at, or 0 if
// it has not locked yet.
func (e *Engine) BaselineLockedAtMs() uint64 { return e.baselineState.LockedAtMs() }

// BaselineStat exposes one tracked metric key's locked statistics, for
// persistence by the caller, one key at a time (for example over
// TrackedMetricKeys).
func (e *Engine) BaselineStat(key string) (mean, std float64, n int, ok bool) {
	return e.baselineState.Stat(key)
}

// Process consumes one InputSnapshot and returns the resulting Snapshot.
// Returns nil if the engine is disabled, or on quiet ticks suppressed by
// the snapshot_every_n_ticks output cadence; internal state (baseline,
// detectors, structure history) advances either way.
func (e *Engine) Process(input InputSnapshot) *Snapshot {
	if !e.cfg.Enabled {
		return nil
	}
	e.tickCount++

	values := e.trackedValues(input)
	justLocked := e.baselineState.Observe(input.TimestampMs, values, true)

	status := e.statusFor(input.TimestampMs)

	var deltas, zScores map[string]float64
	hasDeltas := false
	if e.baselineState.Locked() {
		deltas, zScores = e.deltaTracker.Compute(values, func(key string) (mean, std float64, ok bool) {
			mean, std, _, ok = e.baselineState.Stat(key)
			return mean, std, ok
		})
		hasDeltas = true
	}

	var sLite *SLite
	if e.cfg.EmitSLite && input.CanComputeStructure() {
		hPerChannel := make(map[string]float64, len(input.ChannelEntropies))
		for _, ce := range input.ChannelEntropies {
			hPerChannel[ce.ChannelID] = ce.H
		}
		edges, broke := structure.Compute(hPerChannel, e.cfg.Structure, e.lastEdges)
		sLite = &SLite{Edges: edges, Break: broke}
		e.lastEdges = edges
	}

	conditions := e.buildConditions(input, justLocked, zScores, sLite)
	var events []anomaly.Event
	if e.cfg.EmitEvents {
		events = e.detector.Evaluate(input.TimestampMs, conditions)
	}

	var baselineStats map[string]BaselineStat
	if e.cfg.IncludeBaselineStats && e.baselineState.Locked() {
		baselineStats = make(map[string]BaselineStat, len(values))
		for key := range values {
			if mean, std, n, ok := e.baselineState.Stat(key); ok {
				baselineStats[key] = BaselineStat{Mean: mean, Std: std, N: n}
			}
		}
	}

	// A quiet tick off the output cadence is suppressed; a tick that
	// emitted events is always returned so no event is ever dropped.
	if e.cfg.OutputEveryNTicks > 1 && e.tickCount%e.cfg.OutputEveryNTicks != 0 && len(events) == 0 {
		return nil
	}

	return &Snapshot{
		TimestampMs:    input.TimestampMs,
		BaselineStatus: status,
		HasDeltas:      hasDeltas,
		Deltas:         deltas,
		ZScores:        zScores,
		SLite:          sLite,
		BaselineStats:  baselineStats,
		Events:         events,
	}
}

// trackedValues extracts the metric keys this engine baselines and deltas,
// honoring the per-metric compute flags from the deltas config block.
// Per-channel entropies are always tracked; they feed the structure summary
// and criticality proxy regardless of which deltas are enabled.
func (e *Engine) trackedValues(input InputSnapshot) map[string]float64 {
	values := make(map[string]float64, 4+len(input.ChannelEntropies))
	if e.cfg.ComputePayloadEntropy {
		values[keyHBytes] = input.HBytes
	}
	if e.cfg.ComputeTC && input.TC != nil {
		values[keyTC] = *input.TC
	}
	if e.cfg.ComputeHJoint && input.HJoint != nil {
		values[keyHJoint] = *input.HJoint
	}
	if e.cfg.ComputeR && input.R != nil {
		values[keyR] = *input.R
	}
	for _, ce := range input.ChannelEntropies {
		values[channelKey(ce.ChannelID)] = ce.H
	}
	return values
}

func (e *Engine) statusFor(nowMs uint64) BaselineStatus {
	if e.baselineState.Locked() {
		return BaselineStatus{Locked: true}
	}
	validSeen, elapsed := e.baselineState.Progress(nowMs)
	return BaselineStatus{ValidSnapshotsSeen: validSeen, ElapsedMs: elapsed}
}

// topCriticalChannel returns the channel with the highest entropy among
// ChannelEntropies, used as a proxy for criticality ranking since raw
// covariance data (needed for true leave-one-out delta-R) is not part of
// the InputSnapshot contract at this layer.
func topCriticalChannel(entropies []ChannelEntropy) (string, bool) {
	if len(entropies) == 0 {
		return "", false
	}
	sorted := append([]ChannelEntropy(nil), entropies...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].H != sorted[j].H {
			return sorted[i].H > sorted[j].H
		}
		return sorted[i].ChannelID < sorted[j].ChannelID
	})
	return sorted[0].ChannelID, true
}

func zoneFor(r, healthyMin, attentionMin float64) resilience.Zone {
	if r >= healthyMin {
		return resilience.Healthy
	}
	if r >= attentionMin {
		return resilience.Attention
	}
	return resilience.Critical
}

func (e *Engine) buildConditions(input InputSnapshot, justLocked bool, zScores map[string]float64, sLite *SLite) map[anomaly.EventType]anomaly.Condition {
	conditions := make(map[anomaly.EventType]anomaly.Condition, 6)
	locked := e.baselineState.Locked()

	conditions[anomaly.BaselineLocked] = anomaly.Condition{
		True:       justLocked,
		SingleShot: true,
		MetricName: "baseline",
		Message:    "baseline locked",
	}
	// BaselineBuilding fires only on a reset-to-building transition; this
	// engine exposes no reset operation, so it never triggers today.
	conditions[anomaly.BaselineBuilding] = anomaly.Condition{True: false, SingleShot: true}

	if locked {
		if z, ok := zScores[keyHBytes]; ok {
			mean, std, _, _ := e.baselineState.Stat(keyHBytes)
			conditions[anomaly.PayloadEntropySpike] = anomaly.Condition{
				True:          math.Abs(z) >= e.cfg.Anomaly.ZThresholdWarn,
				MetricName:    keyHBytes,
				ObservedValue: input.HBytes,
				BaselineMean:  mean,
				BaselineStd:   std,
				Z:             z,
				Message:       "payload byte entropy deviates from baseline",
			}
		}

		if z, ok := zScores[keyR]; ok && input.R != nil {
			newZone := zoneFor(*input.R, e.cfg.ZoneHealthyMin, e.cfg.ZoneAttentionMin)
			dropping := z <= -e.cfg.Anomaly.ZThresholdWarn &&
				e.hasPrevZone && newZone < e.prevZone
			mean, std, _, _ := e.baselineState.Stat(keyR)
			conditions[anomaly.RedundancyDrop] = anomaly.Condition{
				True:          dropping,
				MetricName:    keyR,
				ObservedValue: *input.R,
				BaselineMean:  mean,
				BaselineStd:   std,
				Z:             z,
				Message:       "redundancy index dropped into a worse zone",
			}
			// The zone reference advances only outside an active drop, so
			// the condition holds across cycles long enough to satisfy the
			// detector's persistence window.
			if !dropping {
				e.prevZone = newZone
			}
			e.hasPrevZone = true
		}

		zHJoint, hasHJoint := zScores[keyHJoint]
		zTC, hasTC := zScores[keyTC]
		if hasHJoint || hasTC {
			surged := (hasHJoint && zHJoint >= e.cfg.Anomaly.ZThresholdWarn) ||
				(hasTC && zTC >= e.cfg.Anomaly.ZThresholdWarn)
			metric, z := keyHJoint, zHJoint
			observed := 0.0
			if input.HJoint != nil {
				observed = *input.HJoint
			}
			if zTC > z {
				metric, z = keyTC, zTC
				if input.TC != nil {
					observed = *input.TC
				}
			}
			mean, std, _, _ := e.baselineState.Stat(metric)
			conditions[anomaly.ComplexitySurge] = anomaly.Condition{
				True:          surged,
				MetricName:    metric,
				ObservedValue: observed,
				BaselineMean:  mean,
				BaselineStd:   std,
				Z:             z,
				Message:       "joint entropy or total correlation surged",
			}
		}
	}

	if sLite != nil {
		conditions[anomaly.StructureBreak] = anomaly.Condition{
			True:       sLite.Break,
			MetricName: "s_lite",
			Message:    "channel similarity structure broke",
		}
	}

	if top, ok := topCriticalChannel(input.ChannelEntropies); ok {
		changed := e.hasPrevCritical && top != e.prevTopCritical
		conditions[anomaly.CriticalityShift] = anomaly.Condition{
			True:       changed,
			MetricName: "criticality",
			Message:    "top-criticality channel changed: " + e.prevTopCritical + " -> " + top,
		}
		e.prevTopCritical = top
		e.hasPrevCritical = true
	}

	return conditions
}
