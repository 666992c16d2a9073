package entropy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteEntropyEmpty(t *testing.T) {
	require.Equal(t, 0.0, ByteEntropy(nil))
}

func TestByteEntropyAllEqual(t *testing.T) {
	buf := make([]byte, 100)
	require.Equal(t, 0.0, ByteEntropy(buf))
}

func TestByteEntropyUniform(t *testing.T) {
	buf := make([]byte, 256)
	for i := range buf {
		buf[i] = byte(i)
	}
	require.InDelta(t, 8.0, ByteEntropy(buf), 1e-9)
}

func TestByteEntropyBounds(t *testing.T) {
	buf := []byte("the quick brown fox jumps over the lazy dog")
	h := ByteEntropy(buf)
	require.GreaterOrEqual(t, h, 0.0)
	require.LessOrEqual(t, h, 8.0)
}

func TestComputeHistogramRetention(t *testing.T) {
	buf := []byte{0, 0, 1, 1, 2}
	out := Compute(buf, PayloadOptions{IncludeHistogram: true})
	require.True(t, out.HasHistogram)
	require.Equal(t, uint32(2), out.Histogram[0])
	require.Equal(t, uint32(1), out.Histogram[2])
}

func TestComputePerChannelBreakdown(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 255, 1, 2, 3}
	out := Compute(buf, PayloadOptions{
		PerChannelRanges: map[string][2]int{
			"constant": {0, 4},
			"varied":   {4, 8},
		},
	})
	require.Equal(t, 0.0, out.PerChannel["constant"])
	require.Greater(t, out.PerChannel["varied"], 0.0)
}

func TestComputeNoRetentionByDefault(t *testing.T) {
	out := Compute([]byte{1, 2, 3}, PayloadOptions{})
	require.False(t, out.HasHistogram)
	require.Nil(t, out.PerChannel)
}
