package complexity

// End-to-end scenario tests: full feeds through the metrics and complexity
// engines, asserting on the emitted event stream rather than individual
// component outputs.

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fathomio/fathom-core/internal/anomaly"
	"github.com/fathomio/fathom-core/internal/baseline"
	"github.com/fathomio/fathom-core/internal/entropy"
	"github.com/fathomio/fathom-core/internal/metrics"
	"github.com/fathomio/fathom-core/internal/window"
)

func scenarioConfig(minValid int, persistenceMs, cooldownMs uint64) Config {
	cfg := DefaultConfig()
	cfg.Baseline = baseline.Config{
		BuildTimeMs:       0,
		MinValidSnapshots: minValid,
		UpdateMode:        baseline.Frozen,
	}
	cfg.Anomaly.PersistenceMs = persistenceMs
	cfg.Anomaly.CooldownMs = cooldownMs
	return cfg
}

func eventsOfType(snap *Snapshot, typ anomaly.EventType) []anomaly.Event {
	var out []anomaly.Event
	for _, ev := range snap.Events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// Two constant channels through the full pipeline: the baseline locks by
// the configured snapshot count, every post-lock z-score is zero, and the
// only event ever emitted is the lock transition itself.
func TestConstantSignalLocksBaselineQuietly(t *testing.T) {
	mCfg := metrics.DefaultConfig()
	mCfg.Trigger = metrics.Trigger{Kind: metrics.EveryNFlushes, N: 2}
	mCfg.Entropy.MinAlignedSamples = 8
	mEngine := metrics.New(window.TimeWindow(600_000), mCfg, nil)

	cEngine := New(scenarioConfig(10, 0, 0), nil)

	processed := 0
	lockedAt := 0
	for ts := uint64(0); ts <= 60_000; ts += 1000 {
		_, err := mEngine.Push("a", 5.0, ts)
		require.NoError(t, err)
		snap, err := mEngine.Push("b", 5.0, ts)
		require.NoError(t, err)
		require.NotNil(t, snap)

		cSnap := cEngine.Process(ToComplexityInput(snap))
		require.NotNil(t, cSnap)
		processed++

		if cSnap.BaselineStatus.Locked && lockedAt == 0 {
			lockedAt = processed
		}
		for _, ev := range cSnap.Events {
			require.Equal(t, anomaly.BaselineLocked, ev.Type)
		}
		if cSnap.HasDeltas {
			for key, z := range cSnap.ZScores {
				require.InDeltaf(t, 0.0, z, 1e-6, "z-score for %s", key)
			}
		}
	}
	require.Equal(t, 10, lockedAt)
}

// A run of all-zero frames establishes a zero-entropy payload baseline;
// one uniformly-distributed frame then spikes h_bytes to 8 bits and must
// emit a single critical payload event.
func TestPayloadEntropySpikeOnUniformFrame(t *testing.T) {
	e := New(scenarioConfig(10, 0, 120_000), nil)

	zeros := make([]byte, 1024)
	require.InDelta(t, 0.0, entropy.ByteEntropy(zeros), 1e-12)
	for i := uint64(0); i < 30; i++ {
		snap := e.Process(InputSnapshot{TimestampMs: i * 1000, HBytes: entropy.ByteEntropy(zeros), Source: "frames"})
		require.Empty(t, eventsOfType(snap, anomaly.PayloadEntropySpike))
	}

	uniform := make([]byte, 1024)
	for i := range uniform {
		uniform[i] = byte(i % 256)
	}
	h := entropy.ByteEntropy(uniform)
	require.InDelta(t, 8.0, h, 1e-9)

	snap := e.Process(InputSnapshot{TimestampMs: 30_000, HBytes: h, Source: "frames"})
	spikes := eventsOfType(snap, anomaly.PayloadEntropySpike)
	require.Len(t, spikes, 1)
	require.Equal(t, anomaly.Crit, spikes[0].Severity)
	require.Greater(t, spikes[0].Z, 3.0)
}

// R holds at 0.6 through baseline build, then drops to 0.35 (a worse
// zone). The event must arrive only once the persistence window has
// elapsed, not on the first degraded cycle.
func TestRedundancyDropEmitsAfterPersistence(t *testing.T) {
	e := New(scenarioConfig(10, 3000, 600_000), nil)

	healthy := 0.6
	for ts := uint64(0); ts < 50_000; ts += 1000 {
		snap := e.Process(InputSnapshot{TimestampMs: ts, HBytes: 1.0, R: &healthy, Source: "sim"})
		require.Empty(t, eventsOfType(snap, anomaly.RedundancyDrop))
	}

	degraded := 0.35
	var dropTs []uint64
	for ts := uint64(50_000); ts <= 56_000; ts += 1000 {
		snap := e.Process(InputSnapshot{TimestampMs: ts, HBytes: 1.0, R: &degraded, Source: "sim"})
		for _, ev := range eventsOfType(snap, anomaly.RedundancyDrop) {
			dropTs = append(dropTs, ev.TimestampMs)
		}
	}
	require.Equal(t, []uint64{53_000}, dropTs)
}

// A frozen sensor's entropy diverging from the rest of the field drops its
// edges out of the sparsified set, which must register as a structure
// break and emit the corresponding event.
func TestFrozenChannelBreaksStructure(t *testing.T) {
	cfg := scenarioConfig(5, 0, 0)
	cfg.Structure.BreakThreshold = 0.15
	e := New(cfg, nil)

	fieldEntropies := func(frozen bool) []ChannelEntropy {
		names := []string{
			"air_temp", "humidity", "leaf_wetness", "lux", "ph",
			"pressure", "soil_moisture", "soil_temp", "wind_dir", "wind_speed",
		}
		out := make([]ChannelEntropy, len(names))
		for i, name := range names {
			h := 1.0 + float64(i)*0.02
			if frozen && name == "soil_moisture" {
				h = 30.0
			}
			out[i] = ChannelEntropy{ChannelID: name, H: h}
		}
		return out
	}

	for ts := uint64(0); ts < 10_000; ts += 1000 {
		snap := e.Process(InputSnapshot{TimestampMs: ts, HBytes: 1.0, ChannelEntropies: fieldEntropies(false), Source: "sim"})
		require.NotNil(t, snap.SLite)
		require.False(t, snap.SLite.Break)
	}

	snap := e.Process(InputSnapshot{TimestampMs: 10_000, HBytes: 1.0, ChannelEntropies: fieldEntropies(true), Source: "sim"})
	require.True(t, snap.SLite.Break)
	require.Len(t, eventsOfType(snap, anomaly.StructureBreak), 1)
}

// A spike condition held continuously across three cooldown windows emits
// exactly three events, spaced at least a full cooldown apart.
func TestSustainedSpikeRespectsCooldown(t *testing.T) {
	e := New(scenarioConfig(10, 0, 2000), nil)

	for ts := uint64(0); ts < 10_000; ts += 1000 {
		e.Process(InputSnapshot{TimestampMs: ts, HBytes: 1.0, Source: "sim"})
	}

	var emitted []uint64
	for ts := uint64(10_000); ts < 16_000; ts += 100 {
		snap := e.Process(InputSnapshot{TimestampMs: ts, HBytes: 50.0, Source: "sim"})
		for _, ev := range eventsOfType(snap, anomaly.PayloadEntropySpike) {
			emitted = append(emitted, ev.TimestampMs)
		}
	}

	require.Len(t, emitted, 3)
	for i := 1; i < len(emitted); i++ {
		require.GreaterOrEqual(t, emitted[i]-emitted[i-1], uint64(2000))
	}
}

// Building-phase snapshots report progress and carry no deltas; the
// snapshot that crosses the valid-count threshold locks, and everything
// after it carries populated deltas and z-scores.
func TestBaselineBuildingThenLockedHandoff(t *testing.T) {
	e := New(scenarioConfig(20, 0, 0), nil)

	for i := 0; i < 19; i++ {
		snap := e.Process(InputSnapshot{TimestampMs: uint64(i) * 1000, HBytes: 1.0 + float64(i)*0.01, Source: "sim"})
		require.False(t, snap.BaselineStatus.Locked)
		require.False(t, snap.HasDeltas)
		require.Nil(t, snap.Deltas)
		require.Equal(t, i+1, snap.BaselineStatus.ValidSnapshotsSeen)
	}

	s20 := e.Process(InputSnapshot{TimestampMs: 19_000, HBytes: 1.19, Source: "sim"})
	require.True(t, s20.BaselineStatus.Locked)
	require.Len(t, eventsOfType(s20, anomaly.BaselineLocked), 1)

	s21 := e.Process(InputSnapshot{TimestampMs: 20_000, HBytes: 1.1, Source: "sim"})
	require.True(t, s21.BaselineStatus.Locked)
	require.True(t, s21.HasDeltas)
	require.Contains(t, s21.Deltas, "h_bytes")
	require.Contains(t, s21.ZScores, "h_bytes")

	// The wire form must round-trip the locked snapshot exactly.
	data, err := s20.ToJSON()
	require.NoError(t, err)
	back, err := FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, s20, back)
}
