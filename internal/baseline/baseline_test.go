package baseline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildingUntilBothThresholds(t *testing.T) {
	cfg := Config{BuildTimeMs: 10_000, MinValidSnapshots: 3}
	b := New(cfg)

	require.False(t, b.Observe(0, map[string]float64{"x": 1}, true))
	require.False(t, b.Observe(1000, map[string]float64{"x": 2}, true))
	// time threshold not yet met even though n will reach 3
	require.False(t, b.Observe(2000, map[string]float64{"x": 3}, true))
	require.False(t, b.Locked())

	require.True(t, b.Observe(11000, map[string]float64{"x": 4}, true))
	require.True(t, b.Locked())
}

func TestInvalidSnapshotsDoNotCountTowardN(t *testing.T) {
	cfg := Config{BuildTimeMs: 0, MinValidSnapshots: 2}
	b := New(cfg)
	b.Observe(0, map[string]float64{"x": 1}, false)
	b.Observe(1, map[string]float64{"x": 1}, false)
	require.False(t, b.Locked())
	b.Observe(2, map[string]float64{"x": 1}, true)
	require.True(t, b.Observe(3, map[string]float64{"x": 1}, true))
}

func TestLockedOnlyOnce(t *testing.T) {
	cfg := Config{BuildTimeMs: 0, MinValidSnapshots: 1}
	b := New(cfg)
	require.True(t, b.Observe(0, map[string]float64{"x": 1}, true))
	require.False(t, b.Observe(1, map[string]float64{"x": 2}, true)) // already locked
	require.True(t, b.Locked())
}

func TestFrozenModeIgnoresPostLockUpdates(t *testing.T) {
	cfg := Config{BuildTimeMs: 0, MinValidSnapshots: 1, UpdateMode: Frozen}
	b := New(cfg)
	b.Observe(0, map[string]float64{"x": 10}, true)
	mean, _, _, _ := b.Stat("x")

	b.Observe(1, map[string]float64{"x": 1000}, true)
	mean2, _, _, _ := b.Stat("x")
	require.Equal(t, mean, mean2)
}

func TestEmaModeShiftsMean(t *testing.T) {
	cfg := Config{BuildTimeMs: 0, MinValidSnapshots: 1, UpdateMode: Ema, EmaAlpha: 0.5}
	b := New(cfg)
	b.Observe(0, map[string]float64{"x": 10}, true)
	b.Observe(1, map[string]float64{"x": 20}, true)
	mean, _, _, _ := b.Stat("x")
	require.InDelta(t, 15.0, mean, 1e-9)
}

func TestRollingModeBoundsWindow(t *testing.T) {
	cfg := Config{BuildTimeMs: 0, MinValidSnapshots: 1, UpdateMode: Rolling, RollingWindowSnapshots: 2}
	b := New(cfg)
	b.Observe(0, map[string]float64{"x": 1}, true)
	b.Observe(1, map[string]float64{"x": 2}, true)
	b.Observe(2, map[string]float64{"x": 3}, true)
	_, _, n, _ := b.Stat("x")
	require.Equal(t, 2, n)
}

func TestStatUnknownKey(t *testing.T) {
	b := New(DefaultConfig())
	_, _, _, ok := b.Stat("missing")
	require.False(t, ok)
}
