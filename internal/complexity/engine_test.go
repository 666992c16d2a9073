package complexity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fathomio/fathom-core/internal/anomaly"
	"github.com/fathomio/fathom-core/internal/baseline"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Baseline = baseline.Config{
		BuildTimeMs:       0,
		MinValidSnapshots: 3,
		UpdateMode:        baseline.Frozen,
	}
	cfg.Anomaly.PersistenceMs = 0
	cfg.Anomaly.CooldownMs = 0
	return cfg
}

func snapshotAt(ts uint64, hBytes float64, channels map[string]float64) InputSnapshot {
	entropies := make([]ChannelEntropy, 0, len(channels))
	for id, h := range channels {
		entropies = append(entropies, ChannelEntropy{ChannelID: id, H: h})
	}
	return InputSnapshot{
		TimestampMs:      ts,
		HBytes:           hBytes,
		ChannelEntropies: entropies,
		Source:           "test",
	}
}

func TestProcessDisabledReturnsNil(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	e := New(cfg, nil)
	require.Nil(t, e.Process(snapshotAt(0, 1.0, nil)))
}

func TestProcessBuildsThenLocksBaseline(t *testing.T) {
	e := New(testConfig(), nil)

	s1 := e.Process(snapshotAt(0, 1.0, nil))
	require.False(t, s1.BaselineStatus.Locked)
	require.False(t, s1.HasDeltas)

	s2 := e.Process(snapshotAt(1, 1.0, nil))
	require.False(t, s2.BaselineStatus.Locked)

	s3 := e.Process(snapshotAt(2, 1.0, nil))
	require.True(t, s3.BaselineStatus.Locked)
	require.True(t, s3.HasDeltas)

	foundLocked := false
	for _, ev := range s3.Events {
		if ev.Type == anomaly.BaselineLocked {
			foundLocked = true
		}
	}
	require.True(t, foundLocked)
}

func TestProcessEmitsDeltasAfterLock(t *testing.T) {
	e := New(testConfig(), nil)
	e.Process(snapshotAt(0, 1.0, nil))
	e.Process(snapshotAt(1, 1.0, nil))
	e.Process(snapshotAt(2, 1.0, nil))

	s := e.Process(snapshotAt(3, 5.0, nil))
	require.True(t, s.HasDeltas)
	require.InDelta(t, 4.0, s.Deltas[keyHBytes], 1e-9)
}

func TestProcessComputesSLiteWithTwoOrMoreChannels(t *testing.T) {
	e := New(testConfig(), nil)
	channels := map[string]float64{"a": 1.0, "b": 1.05, "c": 5.0}
	s := e.Process(snapshotAt(0, 1.0, channels))
	require.NotNil(t, s.SLite)
	require.NotEmpty(t, s.SLite.Edges)
}

func TestProcessNoSLiteWithFewerThanTwoChannels(t *testing.T) {
	e := New(testConfig(), nil)
	s := e.Process(snapshotAt(0, 1.0, map[string]float64{"a": 1.0}))
	require.Nil(t, s.SLite)
}

func TestProcessStructureBreakDetectedOnEdgeChange(t *testing.T) {
	e := New(testConfig(), nil)
	channels := map[string]float64{"a": 1.0, "b": 1.02, "c": 5.0}
	e.Process(snapshotAt(0, 1.0, channels))

	changed := map[string]float64{"a": 1.0, "b": 9.0, "c": 5.0}
	s := e.Process(snapshotAt(1, 1.0, changed))
	require.NotNil(t, s.SLite)

	foundBreak := false
	for _, ev := range s.Events {
		if ev.Type == anomaly.StructureBreak {
			foundBreak = true
		}
	}
	if s.SLite.Break {
		require.True(t, foundBreak)
	}
}

func TestProcessPayloadEntropySpikeAfterLock(t *testing.T) {
	e := New(testConfig(), nil)
	for i := uint64(0); i < 3; i++ {
		e.Process(snapshotAt(i, 4.0, nil))
	}

	s := e.Process(snapshotAt(3, 100.0, nil))
	found := false
	for _, ev := range s.Events {
		if ev.Type == anomaly.PayloadEntropySpike {
			found = true
			require.Equal(t, anomaly.Crit, ev.Severity)
		}
	}
	require.True(t, found)
}

func TestProcessCriticalityShiftOnTopChannelChange(t *testing.T) {
	e := New(testConfig(), nil)
	e.Process(snapshotAt(0, 1.0, map[string]float64{"a": 5.0, "b": 1.0}))
	s := e.Process(snapshotAt(1, 1.0, map[string]float64{"a": 1.0, "b": 5.0}))

	found := false
	for _, ev := range s.Events {
		if ev.Type == anomaly.CriticalityShift {
			found = true
		}
	}
	require.True(t, found)
}

func TestProcessNoCriticalityShiftWhenTopChannelStable(t *testing.T) {
	e := New(testConfig(), nil)
	e.Process(snapshotAt(0, 1.0, map[string]float64{"a": 5.0, "b": 1.0}))
	s := e.Process(snapshotAt(1, 1.0, map[string]float64{"a": 5.1, "b": 1.1}))

	for _, ev := range s.Events {
		require.NotEqual(t, anomaly.CriticalityShift, ev.Type)
	}
}

func TestProcessBaselineBuildingNeverFires(t *testing.T) {
	e := New(testConfig(), nil)
	for i := uint64(0); i < 5; i++ {
		s := e.Process(snapshotAt(i, 1.0, nil))
		for _, ev := range s.Events {
			require.NotEqual(t, anomaly.BaselineBuilding, ev.Type)
		}
	}
}

func TestProcessEventsRespectFixedOrder(t *testing.T) {
	e := New(testConfig(), nil)
	e.Process(snapshotAt(0, 1.0, map[string]float64{"a": 5.0, "b": 1.0}))
	e.Process(snapshotAt(1, 1.0, map[string]float64{"a": 5.0, "b": 1.0}))
	s := e.Process(snapshotAt(2, 1.0, map[string]float64{"a": 5.0, "b": 1.0}))
	require.True(t, s.BaselineStatus.Locked)

	s2 := e.Process(snapshotAt(3, 500.0, map[string]float64{"a": 1.0, "b": 500.0}))
	order := make([]anomaly.EventType, 0, len(s2.Events))
	for _, ev := range s2.Events {
		order = append(order, ev.Type)
	}
	for i := 1; i < len(order); i++ {
		require.Less(t, int(order[i-1]), int(order[i]))
	}
}

func TestProcessEmitEventsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.EmitEvents = false
	e := New(cfg, nil)
	s := e.Process(snapshotAt(0, 1.0, nil))
	require.Empty(t, s.Events)
}

func TestSnapshotEveryNTicksSuppressesQuietTicks(t *testing.T) {
	cfg := testConfig()
	cfg.OutputEveryNTicks = 3
	e := New(cfg, nil)

	require.Nil(t, e.Process(snapshotAt(0, 1.0, nil)))
	require.Nil(t, e.Process(snapshotAt(1, 1.0, nil)))

	// Third tick is on cadence and also locks the baseline.
	s3 := e.Process(snapshotAt(2, 1.0, nil))
	require.NotNil(t, s3)
	require.True(t, s3.BaselineStatus.Locked)

	// Quiet off-cadence tick stays suppressed.
	require.Nil(t, e.Process(snapshotAt(3, 1.0, nil)))

	// An off-cadence tick that emits an event is returned regardless.
	s5 := e.Process(snapshotAt(4, 100.0, nil))
	require.NotNil(t, s5)
	require.NotEmpty(t, s5.Events)
}

func TestIncludeBaselineStatsPopulatedAfterLock(t *testing.T) {
	e := New(testConfig(), nil)
	s1 := e.Process(snapshotAt(0, 1.0, nil))
	require.Nil(t, s1.BaselineStats) // still building

	e.Process(snapshotAt(1, 1.0, nil))
	s3 := e.Process(snapshotAt(2, 1.0, nil))
	require.True(t, s3.BaselineStatus.Locked)
	require.Contains(t, s3.BaselineStats, keyHBytes)
	require.InDelta(t, 1.0, s3.BaselineStats[keyHBytes].Mean, 1e-9)
	require.Equal(t, 3, s3.BaselineStats[keyHBytes].N)
}

func TestGenericInputRoundTripsIntoEngine(t *testing.T) {
	e := New(testConfig(), nil)
	input := NewGenericInput(0, 2.5).WithTC(0.1).WithHJoint(3.0).WithR(0.8).
		WithChannel("temp", 1.2).WithChannel("humidity", 1.3).Build()

	s := e.Process(input)
	require.False(t, s.BaselineStatus.Locked)
	require.NotNil(t, s.SLite)
}
