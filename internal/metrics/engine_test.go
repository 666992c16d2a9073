package metrics

import (
	"math"
	"testing"

	"github.com/fathomio/fathom-core/internal/align"
	"github.com/fathomio/fathom-core/internal/errs"
	"github.com/fathomio/fathom-core/internal/window"
	"github.com/stretchr/testify/require"
)

func feed(e *Engine, ch string, n int, seed float64, startMs, stepMs uint64) {
	for i := 0; i < n; i++ {
		v := math.Sin(seed*float64(i)+seed) * 10
		_, _ = e.Push(ch, v, startMs+uint64(i)*stepMs)
	}
}

func TestPushReturnsSnapshotOnEveryNFlushes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trigger = Trigger{Kind: EveryNFlushes, N: 5}
	cfg.Entropy.MinAlignedSamples = 10
	cfg.Missing = align.MissingPolicy{Kind: align.MissingAllowPartial, MinChannels: 1}

	e := New(window.TimeWindow(600_000), cfg, nil)
	var last *Snapshot
	for i := 0; i < 40; i++ {
		snap, err := e.Push("a", math.Sin(float64(i))*10, uint64(i)*1000)
		require.NoError(t, err)
		if snap != nil {
			last = snap
			break
		}
	}
	require.NotNil(t, last)
}

func TestPushRejectsMalformedSamples(t *testing.T) {
	e := New(window.TimeWindow(60_000), DefaultConfig(), nil)

	_, err := e.Push("", 1.0, 0)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = e.Push("a", math.NaN(), 0)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = e.Push("a", math.Inf(1), 0)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	// A rejected sample must not touch the window.
	require.Empty(t, e.ReadyChannelIDs())
}

func TestFlushWithNoSamplesProducesEmptySnapshot(t *testing.T) {
	e := New(window.TimeWindow(60_000), DefaultConfig(), nil)
	snap := e.Flush(1000)
	require.NotNil(t, snap)
	require.False(t, snap.HasSignal)
}

func TestFlushWithFullJointChannelsIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Entropy.MinAlignedSamples = 10
	cfg.Missing = align.MissingPolicy{Kind: align.MissingDrop}

	e := New(window.TimeWindow(600_000), cfg, nil)
	feed(e, "a", 40, 1.1, 0, 500)
	feed(e, "b", 40, 2.2, 0, 500)

	snap := e.Flush(20000)
	require.True(t, snap.HasSignal)
	if snap.Signal.Valid {
		require.True(t, snap.HasResilience)
	}
}

func TestStageFrameConsumedOnFlush(t *testing.T) {
	e := New(window.TimeWindow(60_000), DefaultConfig(), nil)
	e.StageFrame([]byte{1, 1, 2, 2}, nil)
	snap := e.Flush(1000)
	require.True(t, snap.HasPayload)

	snap2 := e.Flush(2000)
	require.False(t, snap2.HasPayload)
}

func TestLastSnapshotPersists(t *testing.T) {
	e := New(window.TimeWindow(60_000), DefaultConfig(), nil)
	require.Nil(t, e.LastSnapshot())
	e.Flush(1000)
	require.NotNil(t, e.LastSnapshot())
}

func TestEveryMillisTrigger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trigger = Trigger{Kind: EveryMillis, Millis: 5000}
	e := New(window.TimeWindow(60_000), cfg, nil)

	snap, err := e.Push("a", 1.0, 0)
	require.NoError(t, err)
	require.NotNil(t, snap) // first push always flushes (nothing has flushed yet)

	snap, err = e.Push("a", 1.0, 1000)
	require.NoError(t, err)
	require.Nil(t, snap)

	snap, err = e.Push("a", 1.0, 6000)
	require.NoError(t, err)
	require.NotNil(t, snap)
}

func TestRemoveChannelDropsState(t *testing.T) {
	e := New(window.TimeWindow(60_000), DefaultConfig(), nil)
	_, err := e.Push("a", 1.0, 0)
	require.NoError(t, err)
	require.Contains(t, e.ReadyChannelIDs(), "a")

	e.RemoveChannel("a")
	require.Empty(t, e.ReadyChannelIDs())
}

func TestStagedPerChannelRangesReachPayload(t *testing.T) {
	e := New(window.TimeWindow(60_000), DefaultConfig(), nil)
	buf := []byte{0, 0, 0, 0, 1, 2, 3, 4}
	e.StageFrame(buf, map[string][2]int{"a": {0, 4}, "b": {4, 8}})

	snap := e.Flush(1000)
	require.True(t, snap.HasPayload)
	require.Len(t, snap.Payload.PerChannel, 2)
	require.InDelta(t, 0.0, snap.Payload.PerChannel["a"], 1e-9)
	require.InDelta(t, 2.0, snap.Payload.PerChannel["b"], 1e-9)
}
