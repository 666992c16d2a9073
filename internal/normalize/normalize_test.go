package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoneBypasses(t *testing.T) {
	n := New(None, 1, 0)
	vals := []float64{1, 2, 3}
	n.Column("a", vals)
	require.Equal(t, []float64{1, 2, 3}, vals)
}

func TestZScoreBypassesBeforeMinSamples(t *testing.T) {
	n := New(ZScore, 10, 0)
	vals := []float64{5, 5, 5}
	n.Column("a", vals)
	require.Equal(t, []float64{5, 5, 5}, vals)
}

func TestZScoreActivates(t *testing.T) {
	n := New(ZScore, 2, 0)
	n.Column("a", []float64{10, 10})
	vals := []float64{20}
	n.Column("a", vals)
	require.False(t, math.IsNaN(vals[0]))
}

func TestRobustMadMedian(t *testing.T) {
	median, mad := medianMAD([]float64{1, 2, 3, 4, 5})
	require.Equal(t, 3.0, median)
	require.Greater(t, mad, 0.0)
}

func TestRobustMadZeroWhenConstant(t *testing.T) {
	n := New(RobustMad, 1, 0)
	vals := []float64{7, 7, 7}
	n.Column("a", vals)
	require.Equal(t, []float64{7, 7, 7}, vals) // mad==0 -> bypass
}
