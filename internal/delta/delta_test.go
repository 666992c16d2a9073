package delta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func statFn(mean, std float64, ok bool) func(string) (float64, float64, bool) {
	return func(string) (float64, float64, bool) { return mean, std, ok }
}

func TestComputeBasicDeltaAndZ(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	deltas, zScores := tr.Compute(map[string]float64{"x": 12}, statFn(10, 2, true))
	require.Equal(t, 2.0, deltas["x"])
	require.Equal(t, 1.0, zScores["x"])
}

func TestComputeSkipsMissingBaseline(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	deltas, zScores := tr.Compute(map[string]float64{"x": 12}, statFn(0, 0, false))
	require.Empty(t, deltas)
	require.Empty(t, zScores)
}

func TestComputeClampsStdFloor(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	_, zScores := tr.Compute(map[string]float64{"x": 1}, statFn(0, 0, true))
	eps := float64(epsStd)
	require.Equal(t, 1/eps, zScores["x"])
}

func TestSmoothingBlendsAcrossCalls(t *testing.T) {
	cfg := Config{SmoothingEnabled: true, Alpha: 0.5}
	tr := NewTracker(cfg)

	_, z1 := tr.Compute(map[string]float64{"x": 10}, statFn(0, 1, true))
	require.Equal(t, 10.0, z1["x"]) // first call seeds smoothed with raw z

	_, z2 := tr.Compute(map[string]float64{"x": 20}, statFn(0, 1, true))
	require.InDelta(t, 15.0, z2["x"], 1e-9)
}
